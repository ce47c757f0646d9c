package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

// Endpoint paths on the analysis service.
const (
	PathAnalyze = "/api/v1/analyze-chunks"
	PathHealth  = "/health"
	PathScrape  = "/scrape-url"
)

const maxResponseSize = 16 << 20

// AnalyzeRequest is the payload forwarded to the analysis endpoint.
type AnalyzeRequest struct {
	URL        string               `json:"url,omitempty"`
	Title      string               `json:"title"`
	Paragraphs []types.ContentBlock `json:"paragraphs"`
}

// Probe is the outcome of a single diagnostic call.
type Probe struct {
	Status    int    `json:"status,omitempty"`
	OK        bool   `json:"ok"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
}

// Client talks to the remote analysis service.
type Client struct {
	cfg    config.BackendConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a new backend client. Deadlines are applied per call
// from cfg.
func NewClient(cfg config.BackendConfig, logger *slog.Logger) *Client {
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger.With("component", "backend_client"),
	}
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string { return c.cfg.URL }

// Configured reports whether a backend URL is set.
func (c *Client) Configured() bool { return c.cfg.URL != "" }

// ScrapeEnabled reports whether scrapes should be tried on the backend first.
func (c *Client) ScrapeEnabled() bool { return c.Configured() && c.cfg.ScrapeEnabled }

// ScrapeURL asks the backend to scrape rawURL. A non-2xx answer is returned
// as a *types.BackendError carrying the status and body.
func (c *Client) ScrapeURL(ctx context.Context, rawURL string) (*types.ExtractionResult, error) {
	body, _, err := c.do(ctx, http.MethodPost, PathScrape, c.cfg.ScrapeTimeout, types.ExtractionRequest{URL: rawURL})
	if err != nil {
		return nil, err
	}

	var result types.ExtractionResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &types.BackendError{Endpoint: PathScrape, Body: body, Err: fmt.Errorf("decode scrape response: %w", err)}
	}
	for i := range result.Blocks {
		result.Blocks[i].Index = i
	}
	if result.Blocks == nil && result.Success {
		result.Blocks = []types.ContentBlock{}
	}
	result.Source = types.SourceBackend
	c.logger.Debug("backend scrape complete", "url", rawURL, "blocks", result.Total())
	return &result, nil
}

// Analyze forwards req to the analysis endpoint and returns the verdict JSON
// unchanged.
func (c *Client) Analyze(ctx context.Context, req *AnalyzeRequest) (json.RawMessage, error) {
	body, _, err := c.do(ctx, http.MethodPost, PathAnalyze, c.cfg.AnalyzeTimeout, req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, &types.BackendError{Endpoint: PathAnalyze, Body: body, Err: errors.New("backend returned invalid JSON")}
	}
	c.logger.Debug("analysis complete", "paragraphs", len(req.Paragraphs), "bytes", len(body))
	return body, nil
}

// Health fetches the backend health document.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	body, _, err := c.do(ctx, http.MethodGet, PathHealth, c.cfg.HealthTimeout, nil)
	if err != nil {
		return nil, err
	}
	data := map[string]any{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &types.BackendError{Endpoint: PathHealth, Body: body, Err: fmt.Errorf("decode health response: %w", err)}
	}
	return data, nil
}

// ProbeHealth calls the health endpoint and reports what happened, whatever
// the status.
func (c *Client) ProbeHealth(ctx context.Context, timeout time.Duration) Probe {
	return c.probe(ctx, http.MethodGet, PathHealth, timeout, nil)
}

// ProbeScrape asks the backend to scrape target and reports what happened.
func (c *Client) ProbeScrape(ctx context.Context, target string, timeout time.Duration) Probe {
	return c.probe(ctx, http.MethodPost, PathScrape, timeout, types.ExtractionRequest{URL: target})
}

func (c *Client) probe(ctx context.Context, method, path string, timeout time.Duration, payload any) Probe {
	body, status, err := c.do(ctx, method, path, timeout, payload)

	var be *types.BackendError
	if err != nil && !(errors.As(err, &be) && be.Status > 0) {
		return Probe{Error: err.Error(), ErrorType: errorType(err)}
	}

	p := Probe{Status: status, OK: err == nil}
	if be != nil {
		body = be.Body
	}
	var data any
	if json.Unmarshal(body, &data) == nil {
		p.Data = data
	}
	return p
}

// do performs one JSON round trip bounded by timeout. Any failure is a
// *types.BackendError; timeouts wrap types.ErrTimeout.
func (c *Client) do(ctx context.Context, method, path string, timeout time.Duration, payload any) ([]byte, int, error) {
	if !c.Configured() {
		return nil, 0, &types.BackendError{Endpoint: path, Err: types.ErrBackendNotConfigured}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, &types.BackendError{Endpoint: path, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, reader)
	if err != nil {
		return nil, 0, &types.BackendError{Endpoint: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			err = fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		c.logger.Debug("backend request failed", "path", path, "error", err)
		return nil, 0, &types.BackendError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if isTimeout(ctx, err) {
			err = fmt.Errorf("%w: %v", types.ErrTimeout, err)
		}
		return nil, resp.StatusCode, &types.BackendError{Endpoint: path, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	c.logger.Debug("backend response",
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, &types.BackendError{
			Endpoint: path,
			Status:   resp.StatusCode,
			Body:     body,
			Err:      fmt.Errorf("backend error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}
	return body, resp.StatusCode, nil
}

// IsTimeout reports whether err is a backend call that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, types.ErrTimeout)
}

// IsUnreachable reports whether err is a backend call that never got a response.
func IsUnreachable(err error) bool {
	var be *types.BackendError
	return errors.As(err, &be) && be.Status == 0 && !errors.Is(err, types.ErrBackendNotConfigured)
}

// StatusOf returns the HTTP status the backend answered with, or 0.
func StatusOf(err error) int {
	var be *types.BackendError
	if errors.As(err, &be) {
		return be.Status
	}
	return 0
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func errorType(err error) string {
	switch {
	case IsTimeout(err):
		return "TimeoutError"
	case errors.Is(err, types.ErrBackendNotConfigured):
		return "ConfigError"
	default:
		return "NetworkError"
	}
}
