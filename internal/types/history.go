package types

import (
	"time"

	"github.com/google/uuid"
)

// HistoryEntry records the outcome of one scrape for the history view.
type HistoryEntry struct {
	ID         string    `json:"id"                   bson:"_id"`
	URL        string    `json:"url"                  bson:"url"`
	Title      string    `json:"title,omitempty"      bson:"title,omitempty"`
	BlockCount int       `json:"block_count"          bson:"block_count"`
	Source     string    `json:"source"               bson:"source"`
	Success    bool      `json:"success"              bson:"success"`
	ErrorCode  string    `json:"error_code,omitempty" bson:"error_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"           bson:"created_at"`
}

// NewHistoryEntry summarizes result. requestedURL is used when the result
// carries no URL of its own.
func NewHistoryEntry(requestedURL string, result *ExtractionResult) *HistoryEntry {
	u := result.URL
	if u == "" {
		u = requestedURL
	}
	return &HistoryEntry{
		ID:         uuid.NewString(),
		URL:        u,
		Title:      result.Title,
		BlockCount: result.Total(),
		Source:     result.Source,
		Success:    result.Success,
		ErrorCode:  result.Error,
		CreatedAt:  time.Now().UTC(),
	}
}
