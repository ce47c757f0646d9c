package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/linkscout/internal/backend"
	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/extract"
	"github.com/IshaanNene/linkscout/internal/fetcher"
	"github.com/IshaanNene/linkscout/internal/observability"
	"github.com/IshaanNene/linkscout/internal/scrape"
	"github.com/IshaanNene/linkscout/internal/storage"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher fetcher.Fetcher
	history storage.History
	metrics *observability.Metrics
	backend *backend.Client
	scraper *scrape.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	ex, err := extract.New(f, cfg.Extractor, logger, extract.WithMetrics(metrics))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create extractor: %w", err)
	}

	history, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create history store: %w", err)
	}

	client := backend.NewClient(cfg.Backend, logger)
	return &app{
		cfg:     cfg,
		logger:  logger,
		fetcher: f,
		history: history,
		metrics: metrics,
		backend: client,
		scraper: scrape.NewService(ex, client, history, metrics, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.history.Close(); err != nil {
		a.logger.Warn("history close failed", "error", err)
	}
	if err := a.fetcher.Close(); err != nil {
		a.logger.Warn("fetcher close failed", "error", err)
	}
}
