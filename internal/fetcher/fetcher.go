package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the page at the request's URL. Failures are always
	// returned as *types.ExtractError.
	Fetch(ctx context.Context, req *types.Request) (*types.Page, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the fetcher selected by cfg.Fetcher.Type, wrapped with the
// configured outbound limits.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	var f Fetcher
	switch cfg.Fetcher.Type {
	case "", "http":
		f = NewHTTPFetcher(cfg, logger)
	case "browser":
		bf, err := NewBrowserFetcher(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create browser fetcher: %w", err)
		}
		f = bf
	default:
		return nil, fmt.Errorf("unknown fetcher type %q", cfg.Fetcher.Type)
	}

	if cfg.Limits.PerHostRPS > 0 || cfg.Limits.MaxConcurrent > 0 {
		f = NewLimitedFetcher(f, cfg.Limits, logger)
	}
	return f, nil
}
