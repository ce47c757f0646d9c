package storage

import (
	"context"
	"sync"

	"github.com/IshaanNene/linkscout/internal/types"
)

// MemoryHistory keeps the most recent entries in a fixed-size ring.
type MemoryHistory struct {
	mu      sync.RWMutex
	entries []*types.HistoryEntry
	next    int
	full    bool
}

// NewMemoryHistory creates a ring holding at most capacity entries.
func NewMemoryHistory(capacity int) *MemoryHistory {
	if capacity <= 0 {
		capacity = 200
	}
	return &MemoryHistory{entries: make([]*types.HistoryEntry, capacity)}
}

func (s *MemoryHistory) Name() string { return "memory" }

func (s *MemoryHistory) Record(_ context.Context, entry *types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[s.next] = entry
	s.next = (s.next + 1) % len(s.entries)
	if s.next == 0 {
		s.full = true
	}
	return nil
}

func (s *MemoryHistory) List(_ context.Context, limit int) ([]*types.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = len(s.entries)
	}
	limit = min(normalizeLimit(limit), size)

	out := make([]*types.HistoryEntry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.entries)) % len(s.entries)
		out = append(out, s.entries[idx])
	}
	return out, nil
}

func (s *MemoryHistory) Close() error { return nil }
