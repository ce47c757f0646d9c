package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/sync/semaphore"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod, for
// pages that only render their article client-side. Each fetch runs in a
// fresh page that is closed afterwards.
type BrowserFetcher struct {
	browser    *rod.Browser
	timeout    time.Duration
	useStealth bool
	pages      *semaphore.Weighted
	logger     *slog.Logger
	userAgent  string
}

// NewBrowserFetcher launches Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	maxPages := int64(cfg.Fetcher.MaxPages)
	if maxPages < 1 {
		maxPages = 1
	}

	bf := &BrowserFetcher{
		timeout:    cfg.Extractor.Timeout,
		useStealth: cfg.Fetcher.Stealth,
		pages:      semaphore.NewWeighted(maxPages),
		logger:     logger.With("component", "browser_fetcher"),
	}
	if len(cfg.Fetcher.UserAgents) > 0 {
		bf.userAgent = cfg.Fetcher.UserAgents[0]
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		if proxyURL := NewProxyManager(&cfg.Proxy, logger).Next(); proxyURL != nil {
			l = l.Proxy(proxyURL.String())
		}
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "max_pages", maxPages, "stealth", bf.useStealth)
	return bf, nil
}

// Fetch navigates to the URL and returns the rendered document.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	timeout := bf.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rawURL := req.URLString()
	if err := bf.pages.Acquire(ctx, 1); err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}
	defer bf.pages.Release(1)

	start := time.Now()

	page, err := bf.newPage()
	if err != nil {
		return nil, types.NewExtractError(types.KindNetworkError, rawURL, fmt.Errorf("open page: %w", err))
	}
	defer page.Close()
	page = page.Context(ctx)

	if bf.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      bf.userAgent,
			AcceptLanguage: "en-US,en;q=0.9",
		}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	// Navigate only fails on transport errors; the document status comes
	// from the main frame's response event.
	var status int
	waitDocument := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != page.FrameID {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := page.Navigate(rawURL); err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}
	waitDocument()
	if err := documentStatusError(rawURL, status); err != nil {
		bf.logger.Debug("non-2xx document", "url", rawURL, "status", status)
		return nil, err
	}
	if err := page.WaitLoad(); err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, classifyError(ctx, rawURL, err)
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", rawURL,
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return types.NewBrowserPage(req, []byte(html), finalURL, duration), nil
}

// documentStatusError applies the HTTP fetcher's status contract to a
// rendered document. Status 0 means no response event was seen.
func documentStatusError(rawURL string, status int) error {
	if status == 0 || (status >= 200 && status < 300) {
		return nil
	}
	return types.NewHTTPError(rawURL, status)
}

func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.useStealth {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Close shuts down the browser.
func (bf *BrowserFetcher) Close() error {
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
