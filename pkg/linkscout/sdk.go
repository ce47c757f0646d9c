// Package linkscout provides a public SDK for embedding the LinkScout
// extractor as a library.
//
// Example usage:
//
//	ex, err := linkscout.NewExtractor(
//	    linkscout.WithTimeout(10*time.Second),
//	    linkscout.WithRateLimit(2),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ex.Close()
//
//	result := ex.Extract(ctx, "https://example.com/news/story")
//	for _, b := range result.Blocks {
//	    fmt.Println(b.Type, b.Text)
//	}
package linkscout

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/extract"
	"github.com/IshaanNene/linkscout/internal/fetcher"
	"github.com/IshaanNene/linkscout/internal/types"
)

// Re-exported result types.
type (
	Result    = types.ExtractionResult
	Block     = types.ContentBlock
	BlockType = types.BlockType
	ErrorKind = types.ErrorKind
)

// Block types.
const (
	Heading   = types.BlockHeading
	List      = types.BlockList
	Paragraph = types.BlockParagraph
)

// Failure kinds.
const (
	InvalidInput = types.KindInvalidInput
	Timeout      = types.KindTimeout
	NetworkError = types.KindNetworkError
	HTTPError    = types.KindHTTPError
	ParseFailure = types.KindParseFailure
)

// Extractor is the high-level API for using LinkScout as a library.
type Extractor struct {
	cfg       *config.Config
	fetcher   fetcher.Fetcher
	extractor *extract.Extractor
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*config.Config)

// WithTimeout bounds each extraction end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.Extractor.Timeout = d }
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgents = []string{ua} }
}

// WithBrowser renders pages in headless Chrome instead of plain HTTP.
func WithBrowser() Option {
	return func(c *config.Config) { c.Fetcher.Type = "browser" }
}

// WithProxy enables proxy rotation with the given proxy URLs.
func WithProxy(urls ...string) Option {
	return func(c *config.Config) {
		c.Proxy.Enabled = true
		c.Proxy.URLs = urls
	}
}

// WithRateLimit caps requests per second to any single host.
func WithRateLimit(rps float64) Option {
	return func(c *config.Config) { c.Limits.PerHostRPS = rps }
}

// WithMaxConcurrent caps in-flight fetches.
func WithMaxConcurrent(n int64) Option {
	return func(c *config.Config) { c.Limits.MaxConcurrent = n }
}

// WithCSSCandidate prepends a CSS selector to the content container candidates.
func WithCSSCandidate(selector string) Option {
	return func(c *config.Config) {
		c.Extractor.Candidates = append([]config.Candidate{{Selector: selector, Type: "css"}}, candidatesOf(c)...)
	}
}

// WithXPathCandidate prepends an XPath expression to the content container candidates.
func WithXPathCandidate(expr string) Option {
	return func(c *config.Config) {
		c.Extractor.Candidates = append([]config.Candidate{{Selector: expr, Type: "xpath"}}, candidatesOf(c)...)
	}
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

func candidatesOf(c *config.Config) []config.Candidate {
	if len(c.Extractor.Candidates) == 0 {
		return config.DefaultCandidates()
	}
	return c.Extractor.Candidates
}

// NewExtractor creates a new Extractor with the given options.
func NewExtractor(opts ...Option) (*Extractor, error) {
	cfg := config.DefaultConfig()
	cfg.Backend.ScrapeEnabled = false
	for _, opt := range opts {
		opt(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	level := slog.LevelWarn
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	ex, err := extract.New(f, cfg.Extractor, logger)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Extractor{
		cfg:       cfg,
		fetcher:   f,
		extractor: ex,
		logger:    logger,
	}, nil
}

// Extract fetches rawURL and returns its content blocks. Failures are
// reported in the result.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *Result {
	return e.extractor.Extract(ctx, rawURL)
}

// ExtractHTML extracts content blocks from an HTML document already in hand.
func (e *Extractor) ExtractHTML(html []byte, pageURL string) *Result {
	return e.extractor.ExtractHTML(html, pageURL)
}

// Close releases the underlying fetcher.
func (e *Extractor) Close() error {
	return e.fetcher.Close()
}
