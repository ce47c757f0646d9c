package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/IshaanNene/linkscout/internal/types"
)

// Metrics tracks operational counters for the extractor and the backend proxy.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Extraction metrics
	ExtractionsTotal      atomic.Int64
	ExtractionsFailed     atomic.Int64
	EmptyResults          atomic.Int64
	BlocksEmitted         atomic.Int64
	FallbackSegmentations atomic.Int64
	BytesDownloaded       atomic.Int64

	// Failure classification
	FailuresInvalidInput atomic.Int64
	FailuresTimeout      atomic.Int64
	FailuresNetwork      atomic.Int64
	FailuresHTTP         atomic.Int64
	FailuresParse        atomic.Int64

	// Backend metrics
	BackendScrapes   atomic.Int64
	BackendFallbacks atomic.Int64
	AnalyzeRequests  atomic.Int64
	AnalyzeFailures  atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordExtraction counts one finished extraction.
func (m *Metrics) RecordExtraction(result *types.ExtractionResult, bytes int64, segmented bool) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.Add(1)
	m.BytesDownloaded.Add(bytes)
	if segmented {
		m.FallbackSegmentations.Add(1)
	}
	if !result.Success {
		m.ExtractionsFailed.Add(1)
		m.recordFailure(result.Kind)
		return
	}
	m.BlocksEmitted.Add(int64(len(result.Blocks)))
	if len(result.Blocks) == 0 {
		m.EmptyResults.Add(1)
	}
}

func (m *Metrics) recordFailure(kind types.ErrorKind) {
	switch kind {
	case types.KindInvalidInput:
		m.FailuresInvalidInput.Add(1)
	case types.KindTimeout:
		m.FailuresTimeout.Add(1)
	case types.KindNetworkError:
		m.FailuresNetwork.Add(1)
	case types.KindHTTPError:
		m.FailuresHTTP.Add(1)
	default:
		m.FailuresParse.Add(1)
	}
}

// RecordBackendScrape counts a backend scrape attempt and whether it fell back.
func (m *Metrics) RecordBackendScrape(fellBack bool) {
	if m == nil {
		return
	}
	m.BackendScrapes.Add(1)
	if fellBack {
		m.BackendFallbacks.Add(1)
	}
}

// RecordAnalyze counts a forwarded analysis request.
func (m *Metrics) RecordAnalyze(failed bool) {
	if m == nil {
		return
	}
	m.AnalyzeRequests.Add(1)
	if failed {
		m.AnalyzeFailures.Add(1)
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"linkscout_extractions_total", "Total extractions attempted", m.ExtractionsTotal.Load()},
		{"linkscout_extractions_failed_total", "Total failed extractions", m.ExtractionsFailed.Load()},
		{"linkscout_extractions_empty_total", "Successful extractions with no content blocks", m.EmptyResults.Load()},
		{"linkscout_blocks_emitted_total", "Total content blocks emitted", m.BlocksEmitted.Load()},
		{"linkscout_fallback_segmentations_total", "Extractions that used fallback segmentation", m.FallbackSegmentations.Load()},
		{"linkscout_bytes_downloaded_total", "Total page bytes downloaded", m.BytesDownloaded.Load()},
		{"linkscout_failures_invalid_input_total", "Failures caused by invalid input", m.FailuresInvalidInput.Load()},
		{"linkscout_failures_timeout_total", "Failures caused by timeouts", m.FailuresTimeout.Load()},
		{"linkscout_failures_network_total", "Failures caused by network errors", m.FailuresNetwork.Load()},
		{"linkscout_failures_http_total", "Failures caused by non-2xx upstream responses", m.FailuresHTTP.Load()},
		{"linkscout_failures_parse_total", "Failures caused by parse errors", m.FailuresParse.Load()},
		{"linkscout_backend_scrapes_total", "Scrape requests forwarded to the backend", m.BackendScrapes.Load()},
		{"linkscout_backend_fallbacks_total", "Backend scrapes that fell back to local extraction", m.BackendFallbacks.Load()},
		{"linkscout_analyze_requests_total", "Analysis requests forwarded to the backend", m.AnalyzeRequests.Load()},
		{"linkscout_analyze_failures_total", "Failed analysis requests", m.AnalyzeFailures.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"extractions_total":      m.ExtractionsTotal.Load(),
		"extractions_failed":     m.ExtractionsFailed.Load(),
		"extractions_empty":      m.EmptyResults.Load(),
		"blocks_emitted":         m.BlocksEmitted.Load(),
		"fallback_segmentations": m.FallbackSegmentations.Load(),
		"bytes_downloaded":       m.BytesDownloaded.Load(),
		"backend_scrapes":        m.BackendScrapes.Load(),
		"backend_fallbacks":      m.BackendFallbacks.Load(),
		"analyze_requests":       m.AnalyzeRequests.Load(),
		"analyze_failures":       m.AnalyzeFailures.Load(),
	}
}
