package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/linkscout/internal/api"
	"github.com/IshaanNene/linkscout/internal/config"
)

var (
	port       int
	backendURL string
	noBackend  bool
	storeType  string
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long:  "Serve the extraction, analysis, health and history endpoints used by the web interface.",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().StringVar(&backendURL, "backend", "", "analysis backend URL")
	cmd.Flags().BoolVar(&noBackend, "no-backend-scrape", false, "always extract locally")
	cmd.Flags().StringVar(&storeType, "storage", "", "history store: none, memory, jsonl, mongodb")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyServeOverrides)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("starting linkscout",
		"port", cfg.Server.Port,
		"backend", cfg.Backend.URL,
		"backend_scrape", cfg.Backend.ScrapeEnabled,
		"fetcher", a.fetcher.Type(),
		"storage", a.history.Name(),
	)

	srv := api.NewServer(cfg, a.scraper, a.backend, a.metrics, logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	stats := a.metrics.Snapshot()
	logger.Info("linkscout stopped",
		"extractions", stats["extractions_total"],
		"failed", stats["extractions_failed"],
		"backend_fallbacks", stats["backend_fallbacks"],
	)
	return nil
}

// applyServeOverrides applies command-line flag values to the config.
func applyServeOverrides(cfg *config.Config) {
	if port > 0 {
		cfg.Server.Port = port
	}
	if backendURL != "" {
		cfg.Backend.URL = backendURL
	}
	if noBackend {
		cfg.Backend.ScrapeEnabled = false
	}
	if storeType != "" {
		cfg.Storage.Type = storeType
	}
}
