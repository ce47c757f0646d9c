package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/IshaanNene/linkscout/internal/types"
)

// JSONLHistory appends entries as newline-delimited JSON (one object per line).
type JSONLHistory struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLHistory opens (or creates) the history file at path for appending.
func NewJSONLHistory(path string, logger *slog.Logger) (*JSONLHistory, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("create history dir: %w", err)}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("open history file: %w", err)}
	}

	return &JSONLHistory{
		path:   path,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_history"),
	}, nil
}

func (s *JSONLHistory) Name() string { return "jsonl" }

func (s *JSONLHistory) Record(_ context.Context, entry *types.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(entry); err != nil {
		return &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("encode JSONL: %w", err)}
	}
	s.count++
	return nil
}

// List scans the file and returns the last limit entries, newest first.
// Malformed lines are skipped.
func (s *JSONLHistory) List(ctx context.Context, limit int) ([]*types.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	limit = normalizeLimit(limit)

	f, err := os.Open(s.path)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("open history file: %w", err)}
	}
	defer f.Close()

	var tail []*types.HistoryEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var entry types.HistoryEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			s.logger.Warn("skipping malformed history line", "error", err)
			continue
		}
		if len(tail) == limit {
			tail = append(tail[1:], &entry)
		} else {
			tail = append(tail, &entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("read history file: %w", err)}
	}

	out := make([]*types.HistoryEntry, len(tail))
	for i, entry := range tail {
		out[len(tail)-1-i] = entry
	}
	return out, nil
}

func (s *JSONLHistory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("history file closed", "path", s.path, "written", s.count)
	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}
