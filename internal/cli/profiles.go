package cli

import (
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List analysis profiles",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		def, _, _ := eng.Profile("")
		for _, name := range eng.Profiles.Names() {
			p := eng.Profiles[name]
			marker := " "
			if name == def {
				marker = "*"
			}
			cmd.Printf("%s %-10s chunk %3d  stride %3d  top-k %d  threshold %.2f\n",
				marker, name, p.ChunkWords, p.StrideWords, p.TopKPerChunk, p.Threshold)
		}
	},
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}
