package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/linkscout/internal/backend"
	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/extract"
	"github.com/IshaanNene/linkscout/internal/fetcher"
	"github.com/IshaanNene/linkscout/internal/observability"
	"github.com/IshaanNene/linkscout/internal/scrape"
	"github.com/IshaanNene/linkscout/internal/storage"
	"github.com/IshaanNene/linkscout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const articleHTML = `<html><head><title>Title</title></head><body><article>
<h1>A heading that is long enough</h1>
<p>This paragraph is definitely long enough to be kept by the extractor.</p>
</article></body></html>`

type testEnv struct {
	handler http.Handler
	siteURL string
	metrics *observability.Metrics
}

// newTestEnv wires a server against a fake article site and, when
// backendHandler is non-nil, a fake analysis backend.
func newTestEnv(t *testing.T, backendHandler http.HandlerFunc) *testEnv {
	t.Helper()

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte(articleHTML))
		}
	}))
	t.Cleanup(site.Close)

	cfg := config.DefaultConfig()
	cfg.Backend.URL = "http://127.0.0.1:1"
	if backendHandler != nil {
		be := httptest.NewServer(backendHandler)
		t.Cleanup(be.Close)
		cfg.Backend.URL = be.URL
	}

	metrics := observability.NewMetrics(testLogger)
	hf := fetcher.NewHTTPFetcher(cfg, testLogger)
	t.Cleanup(func() { _ = hf.Close() })
	ex, err := extract.New(hf, cfg.Extractor, testLogger, extract.WithMetrics(metrics))
	require.NoError(t, err)

	client := backend.NewClient(cfg.Backend, testLogger)
	svc := scrape.NewService(ex, client, storage.NewMemoryHistory(10), metrics, testLogger)
	srv := NewServer(cfg, svc, client, metrics, testLogger)

	return &testEnv{handler: srv.Handler(), siteURL: site.URL, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var data map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &data))
	}
	return rec, data
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, 400, StatusFor(types.KindInvalidInput))
	assert.Equal(t, 504, StatusFor(types.KindTimeout))
	assert.Equal(t, 502, StatusFor(types.KindNetworkError))
	assert.Equal(t, 500, StatusFor(types.KindHTTPError))
	assert.Equal(t, 500, StatusFor(types.KindParseFailure))
}

func TestPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, _ := env.do(t, http.MethodOptions, "/api/scrape-url", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Body.String())
}

func TestScrapeRejectsBadBodies(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, data := env.do(t, http.MethodPost, "/api/scrape-url", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON in request body", data["error"])
	assert.Equal(t, false, data["success"])
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec, data = env.do(t, http.MethodPost, "/api/scrape-url", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "URL is required", data["error"])

	rec, data = env.do(t, http.MethodPost, "/api/extract", `{"url":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_input", data["error"])
}

func TestScrapeFallsBackToLocalExtraction(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, data := env.do(t, http.MethodPost, "/api/scrape-url", `{"url":"`+env.siteURL+`/story"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "Title", data["title"])
	assert.Equal(t, "local", data["source"])
	assert.Equal(t, float64(2), data["total_paragraphs"])

	paragraphs := data["paragraphs"].([]any)
	first := paragraphs[0].(map[string]any)
	assert.Equal(t, float64(0), first["index"])
	assert.Equal(t, "heading", first["type"])
	assert.Equal(t, int64(1), env.metrics.BackendFallbacks.Load())
}

func TestExtractMapsFailureStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, data := env.do(t, http.MethodPost, "/api/extract", `{"url":"`+env.siteURL+`/missing"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, data["success"])
	assert.Equal(t, "http_error", data["error"])
	assert.Equal(t, float64(404), data["status"])
	assert.NotEmpty(t, data["message"])
}

func TestScrapeRelaysBackendStatus(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"blocked"}`))
	})

	rec, data := env.do(t, http.MethodPost, "/api/scrape-url", `{"url":"https://paywalled.example"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "blocked", data["error"])
	assert.Equal(t, "Unable to fetch content from this URL.", data["message"])
	assert.Equal(t, float64(403), data["backendStatus"])
}

func TestAnalyze(t *testing.T) {
	var forwarded backend.AnalyzeRequest
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, backend.PathAnalyze, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&forwarded))
		_, _ = w.Write([]byte(`{"success":true,"verdict":"credible"}`))
	})

	rec, data := env.do(t, http.MethodPost, "/api/analyze", `{"text":"  some pasted article text  "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "credible", data["verdict"])
	assert.Equal(t, "Direct Text Analysis", forwarded.Title)
	require.Len(t, forwarded.Paragraphs, 1)
	assert.Equal(t, "some pasted article text", forwarded.Paragraphs[0].Text)
	assert.Equal(t, types.BlockParagraph, forwarded.Paragraphs[0].Type)

	rec, _ = env.do(t, http.MethodPost, "/api/analyze",
		`{"url":"https://example.com","paragraphs":[{"index":5,"text":"first","type":"heading"},{"text":"second"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Untitled", forwarded.Title)
	require.Len(t, forwarded.Paragraphs, 2)
	assert.Equal(t, 0, forwarded.Paragraphs[0].Index)
	assert.Equal(t, 1, forwarded.Paragraphs[1].Index)
	assert.Equal(t, types.BlockParagraph, forwarded.Paragraphs[1].Type)
}

func TestAnalyzeValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, data := env.do(t, http.MethodPost, "/api/analyze", `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Either paragraphs or text is required", data["error"])

	rec, data = env.do(t, http.MethodPost, "/api/analyze", `{"paragraphs":[{"index":0,"text":""}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", data["error"])
	assert.NotEmpty(t, data["details"])
}

func TestAnalyzeBackendDown(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, data := env.do(t, http.MethodPost, "/api/analyze", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to analyze content. Please ensure the backend server is running.", data["message"])
	assert.Equal(t, int64(1), env.metrics.AnalyzeFailures.Load())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy","model":"loaded"}`))
	})

	rec, data := env.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "loaded", data["model"])
	assert.Equal(t, "healthy", data["web_interface"])
	assert.NotEmpty(t, data["timestamp"])

	down := newTestEnv(t, nil)
	rec, data = down.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", data["status"])
	assert.Equal(t, "offline", data["backend"])
}

func TestTestBackend(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == backend.PathScrape {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	rec, data := env.do(t, http.MethodGet, "/api/test-backend", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store, max-age=0", rec.Header().Get("Cache-Control"))

	tests := data["tests"].(map[string]any)
	health := tests["health"].(map[string]any)
	assert.Equal(t, true, health["ok"])
	scrapeProbe := tests["scrapeUrl"].(map[string]any)
	assert.Equal(t, false, scrapeProbe["ok"])
	assert.Equal(t, float64(404), scrapeProbe["status"])
	assert.Contains(t, data, "environment")
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, nil)

	env.do(t, http.MethodPost, "/api/extract", `{"url":"`+env.siteURL+`/a"}`)
	env.do(t, http.MethodPost, "/api/extract", `{"url":"`+env.siteURL+`/missing"}`)

	rec, data := env.do(t, http.MethodGet, "/api/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), data["count"])
	entry := data["entries"].([]any)[0].(map[string]any)
	assert.Equal(t, false, entry["success"])

	rec, data = env.do(t, http.MethodGet, "/api/history?limit=4611686018427387904", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), data["count"])

	rec, _ = env.do(t, http.MethodGet, "/api/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	env := newTestEnv(t, nil)

	rec, _ := env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linkscout_extractions_total")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	cfg := config.DefaultConfig()
	client := backend.NewClient(cfg.Backend, testLogger)
	srv := NewServer(cfg, nil, client, nil, testLogger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
