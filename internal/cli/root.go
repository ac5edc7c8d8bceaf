// Package cli implements the veritas command line.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/knowledge-engine/veritas/internal/config"
	"github.com/knowledge-engine/veritas/internal/engine"
	"github.com/knowledge-engine/veritas/internal/storage"
)

var (
	cfg = config.Load()

	storageBackend string
	storageDir     string
	verbose        bool

	// eng is built by PersistentPreRunE unless already set.
	eng       *engine.Engine
	ownEngine bool
)

var rootCmd = &cobra.Command{
	Use:   "veritas",
	Short: "Find reused text in documents",
	Long: `Veritas compares documents against a local reference library and,
when a search API key is configured, against pages found on the web.`,
	SilenceUsage:       true,
	PersistentPreRunE:  openEngine,
	PersistentPostRunE: closeEngine,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storageBackend, "backend", cfg.Storage.Backend, "library storage backend (file, sqlite, memory)")
	rootCmd.PersistentFlags().StringVar(&storageDir, "library", cfg.Storage.Dir, "library storage directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

// Execute runs the root command.
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

func openEngine(cmd *cobra.Command, _ []string) error {
	if eng != nil {
		return nil
	}

	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetLevel(logrus.WarnLevel)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	entry := logger.WithField("service", "veritas-cli")

	store, err := storage.Open(storageBackend, storageDir)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}
	e, err := engine.NewEngine(cfg, entry, store, engine.NewProvider(cfg.Web))
	if err != nil {
		store.Close()
		return err
	}
	eng, ownEngine = e, true
	return nil
}

func closeEngine(_ *cobra.Command, _ []string) error {
	if !ownEngine || eng == nil {
		return nil
	}
	err := eng.Close()
	eng, ownEngine = nil, false
	return err
}
