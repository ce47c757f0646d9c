package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

// List limits. A non-positive limit means DefaultListLimit; anything above
// MaxListLimit is clamped to it.
const (
	DefaultListLimit = 20
	MaxListLimit     = 1000
)

// History is the interface for all scrape history backends.
type History interface {
	// Record persists one entry.
	Record(ctx context.Context, entry *types.HistoryEntry) error

	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]*types.HistoryEntry, error)

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New builds the history backend selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (History, error) {
	switch cfg.Type {
	case "", "none":
		return NopHistory{}, nil
	case "memory":
		return NewMemoryHistory(cfg.MemoryCapacity), nil
	case "jsonl":
		return NewJSONLHistory(cfg.Path, logger)
	case "mongodb":
		return NewMongoHistory(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	default:
		return nil, &types.StorageError{Backend: cfg.Type, Err: fmt.Errorf("unsupported storage type: %s", cfg.Type)}
	}
}

// NopHistory discards every entry.
type NopHistory struct{}

func (NopHistory) Name() string { return "none" }

func (NopHistory) Record(context.Context, *types.HistoryEntry) error { return nil }

func (NopHistory) List(context.Context, int) ([]*types.HistoryEntry, error) {
	return []*types.HistoryEntry{}, nil
}

func (NopHistory) Close() error { return nil }

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}
