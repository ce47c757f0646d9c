package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IshaanNene/linkscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestRecordExtraction(t *testing.T) {
	m := NewMetrics(testLogger)

	blocks := []types.ContentBlock{{Index: 0, Text: "a sufficiently long paragraph", Type: types.BlockParagraph}}
	m.RecordExtraction(types.Succeeded("https://a.com", "A", blocks), 1200, false)
	m.RecordExtraction(types.Succeeded("https://b.com", "B", nil), 300, true)
	m.RecordExtraction(types.Failed(types.NewHTTPError("https://c.com", 404)), 0, false)

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap["extractions_total"])
	assert.Equal(t, int64(1), snap["extractions_failed"])
	assert.Equal(t, int64(1), snap["extractions_empty"])
	assert.Equal(t, int64(1), snap["blocks_emitted"])
	assert.Equal(t, int64(1), snap["fallback_segmentations"])
	assert.Equal(t, int64(1500), snap["bytes_downloaded"])
	assert.Equal(t, int64(1), m.FailuresHTTP.Load())
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordExtraction(types.Succeeded("u", "t", nil), 1, false)
		m.RecordBackendScrape(true)
		m.RecordAnalyze(true)
	})
}

func TestServeHTTP(t *testing.T) {
	m := NewMetrics(testLogger)
	m.RecordBackendScrape(true)

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, body, "# TYPE linkscout_backend_fallbacks_total counter")
	assert.Contains(t, body, "linkscout_backend_fallbacks_total 1")
}
