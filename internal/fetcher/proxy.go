package fetcher

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/IshaanNene/linkscout/internal/config"
)

// ProxyManager rotates outbound requests across the configured proxies.
// A proxy that fails at the network level is benched and rejoins the
// rotation once proxy.retry_after has elapsed.
type ProxyManager struct {
	mu         sync.Mutex
	proxies    []*proxyState
	random     bool
	cursor     int
	retryAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type proxyState struct {
	url      *url.URL
	failedAt time.Time // zero while healthy
}

// NewProxyManager creates a new ProxyManager from configuration. Unparseable
// entries are logged and skipped.
func NewProxyManager(cfg *config.ProxyConfig, logger *slog.Logger) *ProxyManager {
	pm := &ProxyManager{
		random:     cfg.Rotation == "random",
		retryAfter: cfg.RetryAfter,
		now:        time.Now,
		logger:     logger.With("component", "proxy_manager"),
	}
	for _, raw := range cfg.URLs {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			pm.logger.Warn("skipping invalid proxy URL", "url", raw, "error", err)
			continue
		}
		pm.proxies = append(pm.proxies, &proxyState{url: u})
	}

	pm.logger.Info("proxy rotation enabled",
		"count", len(pm.proxies),
		"rotation", cfg.Rotation,
		"retry_after", cfg.RetryAfter,
	)
	return pm
}

// Next picks the next usable proxy. nil means a direct connection.
func (pm *ProxyManager) Next() *url.URL {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	usable := pm.usableLocked()
	if len(usable) == 0 {
		return nil
	}
	if pm.random {
		return usable[rand.IntN(len(usable))].url
	}
	p := usable[pm.cursor%len(usable)]
	pm.cursor++
	return p.url
}

// MarkFailed benches a proxy after a network failure through it.
func (pm *ProxyManager) MarkFailed(proxyURL *url.URL, err error) {
	if pm.set(proxyURL, pm.now()) {
		pm.logger.Warn("proxy benched",
			"proxy", proxyURL.Host,
			"error", err,
			"usable", pm.HealthyCount(),
		)
	}
}

// MarkHealthy returns a proxy to the rotation.
func (pm *ProxyManager) MarkHealthy(proxyURL *url.URL) {
	pm.set(proxyURL, time.Time{})
}

// set updates the matching proxy and reports whether one matched.
func (pm *ProxyManager) set(proxyURL *url.URL, failedAt time.Time) bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, p := range pm.proxies {
		if p.url.String() == proxyURL.String() {
			p.failedAt = failedAt
			return true
		}
	}
	return false
}

// HealthyCount returns how many proxies are currently in rotation.
func (pm *ProxyManager) HealthyCount() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return len(pm.usableLocked())
}

func (pm *ProxyManager) usableLocked() []*proxyState {
	now := pm.now()
	usable := make([]*proxyState, 0, len(pm.proxies))
	for _, p := range pm.proxies {
		if p.failedAt.IsZero() || (pm.retryAfter > 0 && now.Sub(p.failedAt) >= pm.retryAfter) {
			usable = append(usable, p)
		}
	}
	return usable
}

// ProxyFunc returns an http.Transport proxy function. When the request
// context carries a proxyChoice, the chosen proxy is recorded on it so the
// caller can report the outcome.
func (pm *ProxyManager) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		u := pm.Next()
		if c, ok := req.Context().Value(proxyChoiceKey{}).(*proxyChoice); ok {
			c.set(u)
		}
		return u, nil
	}
}

type proxyChoiceKey struct{}

// proxyChoice records the proxy that carried the latest hop of a fetch.
type proxyChoice struct {
	mu  sync.Mutex
	url *url.URL
}

func withProxyChoice(ctx context.Context) (context.Context, *proxyChoice) {
	c := &proxyChoice{}
	return context.WithValue(ctx, proxyChoiceKey{}, c), c
}

func (c *proxyChoice) set(u *url.URL) {
	c.mu.Lock()
	c.url = u
	c.mu.Unlock()
}

func (c *proxyChoice) get() *url.URL {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}
