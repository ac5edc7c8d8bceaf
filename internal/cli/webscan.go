package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/knowledge-engine/veritas/internal/config"
	"github.com/knowledge-engine/veritas/internal/engine"
	"github.com/knowledge-engine/veritas/internal/ingest"
	"github.com/knowledge-engine/veritas/internal/report"
)

var (
	webScanMode    string
	webScanProfile string
	webScanJSON    bool
)

var webScanCmd = &cobra.Command{
	Use:   "web-scan [file]",
	Short: "Search the web for passages of a document",
	Long: `Searches distinctive passages of the document with the configured
search API (SERPAPI_KEY) and scores the returned pages against it.
Quick mode searches a few passages, deep mode many more.`,
	Args: cobra.ExactArgs(1),
	RunE: runWebScan,
}

func init() {
	webScanCmd.Flags().StringVarP(&webScanMode, "mode", "m", config.ModeQuick, "scan depth (quick or deep)")
	webScanCmd.Flags().StringVarP(&webScanProfile, "profile", "p", "", "analysis profile")
	webScanCmd.Flags().BoolVar(&webScanJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(webScanCmd)
}

func runWebScan(cmd *cobra.Command, args []string) error {
	name, data, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	text, err := ingest.Extract(name, data)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", name, err)
	}

	rep, err := eng.ScanWeb(context.Background(), engine.WebScanRequest{
		Name:    name,
		Text:    text,
		Mode:    webScanMode,
		Profile: webScanProfile,
	})
	if err != nil {
		return fmt.Errorf("web scan failed: %w", err)
	}

	if webScanJSON {
		return printJSON(cmd, rep)
	}
	return report.WriteWebText(cmd.OutOrStdout(), report.WebSummary{
		Document:         rep.Name,
		Profile:          rep.Profile,
		Mode:             rep.Mode,
		GlobalSimilarity: rep.GlobalSimilarity,
		Hits:             rep.Hits,
	})
}
