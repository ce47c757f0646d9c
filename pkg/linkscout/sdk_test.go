package linkscout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractorEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Story</title></head><body>
			<div id="content"><p>The story body is long enough to keep around.</p></div>
			<div class="content"><p>A decoy paragraph in a generic container.</p></div>
		</body></html>`))
	}))
	defer srv.Close()

	ex, err := NewExtractor(
		WithTimeout(5*time.Second),
		WithRateLimit(50),
		WithMaxConcurrent(2),
		WithXPathCandidate("//div[@id='content']"),
	)
	require.NoError(t, err)
	defer ex.Close()

	result := ex.Extract(context.Background(), srv.URL)
	require.True(t, result.Success)
	assert.Equal(t, "Story", result.Title)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, Paragraph, result.Blocks[0].Type)
	assert.Equal(t, "The story body is long enough to keep around.", result.Blocks[0].Text)
}

func TestExtractorRejectsBadOptions(t *testing.T) {
	_, err := NewExtractor(WithCSSCandidate("div["))
	assert.Error(t, err)

	_, err = NewExtractor(WithTimeout(-time.Second))
	assert.Error(t, err)
}

func TestExtractHTML(t *testing.T) {
	ex, err := NewExtractor()
	require.NoError(t, err)
	defer ex.Close()

	result := ex.ExtractHTML([]byte(`<main><h2>A heading that is long enough</h2></main>`), "https://example.com")
	require.True(t, result.Success)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, Heading, result.Blocks[0].Type)
	assert.Equal(t, "Untitled", result.Title)
}
