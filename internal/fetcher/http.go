package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPFetcher implements Fetcher using net/http. It carries no cookie jar,
// so every request is sessionless.
type HTTPFetcher struct {
	client     *http.Client
	cfg        *config.FetcherConfig
	timeout    time.Duration
	proxies    *ProxyManager
	logger     *slog.Logger
	userAgents []string
	uaIndex    atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Fetcher.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	var proxyMgr *ProxyManager
	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		proxyMgr = NewProxyManager(&cfg.Proxy, logger)
		transport.Proxy = proxyMgr.ProxyFunc()
	}

	maxRedirects := cfg.Fetcher.MaxRedirects
	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if maxRedirects > 0 && len(via) >= maxRedirects {
			return fmt.Errorf("max redirects (%d) reached", maxRedirects)
		}
		return nil
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport:     transport,
			CheckRedirect: redirectPolicy,
		},
		cfg:        &cfg.Fetcher,
		timeout:    cfg.Extractor.Timeout,
		proxies:    proxyMgr,
		logger:     logger.With("component", "http_fetcher"),
		userAgents: cfg.Fetcher.UserAgents,
	}
}

// Fetch issues a GET bounded by the request (or fetcher) timeout.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	timeout := f.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var choice *proxyChoice
	if f.proxies != nil {
		ctx, choice = withProxyChoice(ctx)
	}

	rawURL := req.URLString()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, types.NewExtractError(types.KindInvalidInput, rawURL, err)
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		ee := classifyError(ctx, rawURL, err)
		f.reportProxy(choice, ee)
		return nil, ee
	}
	defer httpResp.Body.Close()
	f.reportProxy(choice, nil)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		f.logger.Debug("non-2xx response", "url", rawURL, "status", httpResp.StatusCode)
		return nil, types.NewHTTPError(rawURL, httpResp.StatusCode)
	}

	reader, err := decompressReader(httpResp, httpResp.Body)
	if err != nil {
		return nil, types.NewExtractError(types.KindParseFailure, rawURL, fmt.Errorf("decode body: %w", err))
	}
	// The cap bounds the decoded document, not the bytes on the wire.
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}
	if f.cfg.MaxBodySize > 0 && int64(len(body)) == f.cfg.MaxBodySize {
		f.logger.Debug("body truncated at size cap", "url", rawURL, "max_body_size", f.cfg.MaxBodySize)
	}
	duration := time.Since(start)

	page := types.NewPage(req, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"final_url", page.FinalURL,
		"status", page.StatusCode,
		"size", page.Size,
		"duration", duration,
	)

	return page, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// reportProxy feeds the outcome of a proxied request back into rotation.
// Only network failures bench a proxy; timeouts may be the target's fault.
func (f *HTTPFetcher) reportProxy(choice *proxyChoice, fetchErr *types.ExtractError) {
	if choice == nil {
		return
	}
	u := choice.get()
	if u == nil {
		return
	}
	if fetchErr == nil {
		f.proxies.MarkHealthy(u)
		return
	}
	if fetchErr.Kind == types.KindNetworkError {
		f.proxies.MarkFailed(u, fetchErr.Err)
	}
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return defaultUserAgent
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// classifyError maps a transport error to Timeout or NetworkError.
// Cancellation of ctx counts as a timeout.
func classifyError(ctx context.Context, rawURL string, err error) *types.ExtractError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return types.NewExtractError(types.KindTimeout, rawURL, fmt.Errorf("%w: %v", types.ErrTimeout, err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.NewExtractError(types.KindTimeout, rawURL, fmt.Errorf("%w: %v", types.ErrTimeout, err))
	}
	return types.NewExtractError(types.KindNetworkError, rawURL, err)
}
