package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/linkscout/internal/backend"
	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/extract"
	"github.com/IshaanNene/linkscout/internal/fetcher"
	"github.com/IshaanNene/linkscout/internal/observability"
	"github.com/IshaanNene/linkscout/internal/storage"
	"github.com/IshaanNene/linkscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const page = `<html><head><title>Local Title</title></head><body><article>
<p>This paragraph was extracted by the local extractor.</p>
</article></body></html>`

type harness struct {
	svc      *Service
	history  *storage.MemoryHistory
	metrics  *observability.Metrics
	pageURL  string
	pageHits *atomic.Int32
}

func newHarness(t *testing.T, backendHandler http.HandlerFunc) *harness {
	t.Helper()

	hits := &atomic.Int32{}
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(site.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = ""
	cfg.Backend.ScrapeTimeout = 300 * time.Millisecond
	if backendHandler != nil {
		srv := httptest.NewServer(backendHandler)
		t.Cleanup(srv.Close)
		cfg.Backend.URL = srv.URL
	}

	metrics := observability.NewMetrics(testLogger)
	hf := fetcher.NewHTTPFetcher(cfg, testLogger)
	t.Cleanup(func() { _ = hf.Close() })
	ex, err := extract.New(hf, cfg.Extractor, testLogger, extract.WithMetrics(metrics))
	require.NoError(t, err)

	history := storage.NewMemoryHistory(10)
	client := backend.NewClient(cfg.Backend, testLogger)
	return &harness{
		svc:      NewService(ex, client, history, metrics, testLogger),
		history:  history,
		metrics:  metrics,
		pageURL:  site.URL + "/story",
		pageHits: hits,
	}
}

func TestScrapeUsesBackendWhenAvailable(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"url":"https://x","title":"Backend Title",
			"paragraphs":[{"index":0,"text":"paragraph scraped by the backend","type":"p"}]}`))
	})

	out := h.svc.Scrape(context.Background(), h.pageURL)
	require.True(t, out.Result.Success)
	assert.Equal(t, "Backend Title", out.Result.Title)
	assert.Equal(t, types.SourceBackend, out.Result.Source)
	assert.Equal(t, int32(0), h.pageHits.Load())
	assert.Equal(t, int64(1), h.metrics.BackendScrapes.Load())
	assert.Equal(t, int64(0), h.metrics.BackendFallbacks.Load())
}

func TestScrapeFallsBackOnUnavailableStatuses(t *testing.T) {
	for _, status := range []int{404, 405, 501, 502, 503, 504} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})

			out := h.svc.Scrape(context.Background(), h.pageURL)
			require.True(t, out.Result.Success)
			assert.Equal(t, "Local Title", out.Result.Title)
			assert.Equal(t, types.SourceLocal, out.Result.Source)
			assert.Equal(t, int32(1), h.pageHits.Load())
			assert.Equal(t, int64(1), h.metrics.BackendFallbacks.Load())
		})
	}
}

func TestScrapeFallsBackOnTimeout(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	out := h.svc.Scrape(context.Background(), h.pageURL)
	require.True(t, out.Result.Success)
	assert.Equal(t, types.SourceLocal, out.Result.Source)
}

func TestScrapeRelaysBackendRejection(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"blocked","message":"The site blocked us."}`))
	})

	out := h.svc.Scrape(context.Background(), h.pageURL)
	assert.False(t, out.Result.Success)
	assert.Equal(t, types.KindHTTPError, out.Result.Kind)
	assert.Equal(t, http.StatusForbidden, out.BackendStatus)
	assert.JSONEq(t, `{"error":"blocked","message":"The site blocked us."}`, string(out.BackendBody))
	assert.Equal(t, int32(0), h.pageHits.Load())
}

func TestScrapeWithoutBackend(t *testing.T) {
	h := newHarness(t, nil)

	out := h.svc.Scrape(context.Background(), h.pageURL)
	require.True(t, out.Result.Success)
	assert.Equal(t, types.SourceLocal, out.Result.Source)
	assert.Equal(t, int64(0), h.metrics.BackendScrapes.Load())
}

func TestScrapeInvalidInputSkipsBackend(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	out := h.svc.Scrape(context.Background(), "  ")
	assert.False(t, out.Result.Success)
	assert.Equal(t, types.KindInvalidInput, out.Result.Kind)
	assert.Equal(t, int32(0), calls.Load())
}

func TestScrapeRecordsHistory(t *testing.T) {
	h := newHarness(t, nil)

	h.svc.Scrape(context.Background(), h.pageURL)
	h.svc.Extract(context.Background(), "")

	entries, err := h.svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Success)
	assert.Equal(t, "invalid_input", entries[0].ErrorCode)
	assert.True(t, entries[1].Success)
	assert.Equal(t, 1, entries[1].BlockCount)
	assert.Equal(t, "Local Title", entries[1].Title)
}
