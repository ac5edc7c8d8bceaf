package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/veritas/internal/api"
	"github.com/knowledge-engine/veritas/internal/config"
	"github.com/knowledge-engine/veritas/internal/engine"
	"github.com/knowledge-engine/veritas/internal/storage"
)

func main() {
	// Setup Logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// 1. Config
	cfg := config.Load()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}
	entry := logger.WithField("service", "veritas-api")
	entry.Info("Starting Veritas API Service")

	// 2. Library storage
	store, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
	if err != nil {
		entry.Fatalf("Failed to initialize storage: %v", err)
	}

	// 3. Web search, optional
	searcher := engine.NewProvider(cfg.Web)
	if searcher == nil {
		entry.Warn("SERPAPI_KEY not set, web scans are disabled")
	}

	// 4. Engine
	eng, err := engine.NewEngine(cfg, entry, store, searcher)
	if err != nil {
		entry.Fatalf("Failed to initialize engine: %v", err)
	}
	defer eng.Close()

	// 5. API Server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(eng, entry)
	if err := server.Start(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		entry.Fatal(err)
	}
	entry.Info("Veritas API stopped")
}
