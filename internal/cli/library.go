package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	libraryAddName string
	libraryJSON    bool
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the reference library",
}

var libraryAddCmd = &cobra.Command{
	Use:   "add [file...]",
	Short: "Add .txt, .docx or .pdf files to the library",
	Long: `Extracts the text of each file and stores it under the file name,
replacing any document already stored under that name.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLibraryAdd,
}

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library documents",
	Args:  cobra.NoArgs,
	RunE:  runLibraryList,
}

var libraryRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a document from the library",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.RemoveDocument(args[0]); err != nil {
			return fmt.Errorf("failed to remove %s: %w", args[0], err)
		}
		cmd.Printf("Removed %s\n", args[0])
		return nil
	},
}

func init() {
	libraryAddCmd.Flags().StringVar(&libraryAddName, "name", "", "store a single file under this name")
	libraryListCmd.Flags().BoolVar(&libraryJSON, "json", false, "output as JSON")
	libraryCmd.AddCommand(libraryAddCmd, libraryListCmd, libraryRemoveCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	if libraryAddName != "" && len(args) > 1 {
		return errors.New("--name only applies to a single file")
	}

	var failed int
	for _, path := range args {
		name, data, err := readInput(cmd, path)
		if err != nil {
			cmd.PrintErrf("  %v\n", err)
			failed++
			continue
		}
		if libraryAddName != "" {
			name = libraryAddName
		}
		doc, err := eng.AddDocument(name, data)
		if err != nil {
			cmd.PrintErrf("  %s: %v\n", name, err)
			failed++
			continue
		}
		cmd.Printf("Added %s (%s, %d words)\n", doc.Name, doc.Format, doc.Words)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be added", failed, len(args))
	}
	return nil
}

func runLibraryList(cmd *cobra.Command, _ []string) error {
	docs, err := eng.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list library: %w", err)
	}
	if libraryJSON {
		return printJSON(cmd, docs)
	}

	if len(docs) == 0 {
		cmd.Println("Library is empty.")
		return nil
	}
	cmd.Printf("%d documents:\n", len(docs))
	for _, d := range docs {
		cmd.Printf("  %-40s %-5s %7d words  %s\n", d.Name, d.Format, d.Words, d.AddedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
