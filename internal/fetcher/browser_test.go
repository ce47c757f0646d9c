package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

func TestDocumentStatusError(t *testing.T) {
	assert.NoError(t, documentStatusError("https://example.com", 0))
	assert.NoError(t, documentStatusError("https://example.com", http.StatusOK))
	assert.NoError(t, documentStatusError("https://example.com", http.StatusNoContent))

	err := documentStatusError("https://example.com/gone", http.StatusNotFound)
	var ee *types.ExtractError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, types.KindHTTPError, ee.Kind)
	assert.Equal(t, http.StatusNotFound, ee.Status)
	assert.Equal(t, "Not Found", ee.StatusText)

	assert.Equal(t, types.KindHTTPError, types.KindOf(documentStatusError("https://example.com", http.StatusForbidden)))
}

func TestBrowserFetcherHTTPStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("launches a browser")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no local Chromium")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/story", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>rendered story</p></body></html>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<p>this page does not exist</p>", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Fetcher.Type = "browser"
	cfg.Fetcher.Stealth = false
	bf, err := NewBrowserFetcher(cfg, testLogger)
	require.NoError(t, err)
	defer bf.Close()

	page, err := bf.Fetch(context.Background(), mustRequest(t, srv.URL+"/story"))
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "rendered story")

	_, err = bf.Fetch(context.Background(), mustRequest(t, srv.URL+"/gone"))
	require.Error(t, err)
	assert.Equal(t, types.KindHTTPError, types.KindOf(err))
}
