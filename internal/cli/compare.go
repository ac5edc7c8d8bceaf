package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/veritas/internal/engine"
	"github.com/knowledge-engine/veritas/internal/ingest"
	"github.com/knowledge-engine/veritas/internal/matcher"
	"github.com/knowledge-engine/veritas/internal/report"
)

var (
	compareProfile   string
	compareJSON      bool
	compareHighlight bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [file]",
	Short: "Compare a document with the reference library",
	Long: `Splits the document into overlapping word windows, scores every window
against every library document and reports the passages above the profile's
threshold. Pass "-" to read text from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareProfile, "profile", "p", "", "analysis profile (default from VERITAS_DEFAULT_PROFILE)")
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "output the report as JSON")
	compareCmd.Flags().BoolVar(&compareHighlight, "highlight", false, "print the document with matched passages marked")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	name, data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	text, err := ingest.Extract(name, data)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", name, err)
	}

	rep, err := eng.CompareWithLibrary(context.Background(), engine.CompareRequest{
		Name:    name,
		Text:    text,
		Profile: compareProfile,
	})
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if compareJSON {
		return printJSON(cmd, rep)
	}

	if err := report.WriteText(cmd.OutOrStdout(), report.Summary{
		Document:         rep.Name,
		Profile:          rep.Profile,
		Params:           rep.Params,
		GlobalSimilarity: rep.GlobalSimilarity,
		Matches:          rep.Matches,
	}); err != nil {
		return err
	}

	if compareHighlight {
		cmd.Println()
		cmd.Println("Marked text:")
		cmd.Println(rep.Highlighted)
		for _, o := range rep.Snippets {
			if o.Status != matcher.SnippetMarked {
				cmd.Printf("  skipped %q: %s\n", o.Snippet, o.Status)
			}
		}
	}
	return nil
}
