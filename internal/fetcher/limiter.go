package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

var _ Fetcher = (*LimitedFetcher)(nil)

// LimitedFetcher wraps a Fetcher with a per-host token bucket and a global
// cap on in-flight fetches. Waiting is bounded by the caller's context; a
// wait cut short by the context is reported as a timeout.
type LimitedFetcher struct {
	inner    Fetcher
	rps      float64
	sem      *semaphore.Weighted
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	logger   *slog.Logger
}

// NewLimitedFetcher wraps inner with the given limits. Zero values disable
// the corresponding limit.
func NewLimitedFetcher(inner Fetcher, limits config.LimitsConfig, logger *slog.Logger) *LimitedFetcher {
	lf := &LimitedFetcher{
		inner:    inner,
		rps:      limits.PerHostRPS,
		limiters: make(map[string]*rate.Limiter),
		logger:   logger.With("component", "limited_fetcher"),
	}
	if limits.MaxConcurrent > 0 {
		lf.sem = semaphore.NewWeighted(limits.MaxConcurrent)
	}
	return lf
}

// Fetch waits for the host's rate limit and a concurrency slot, then
// delegates to the wrapped fetcher.
func (lf *LimitedFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Page, error) {
	if lf.rps > 0 {
		if err := lf.limiterFor(req.Domain()).Wait(ctx); err != nil {
			return nil, types.NewExtractError(types.KindTimeout, req.URLString(),
				fmt.Errorf("%w: waiting for rate limit: %v", types.ErrTimeout, err))
		}
	}
	if lf.sem != nil {
		if err := lf.sem.Acquire(ctx, 1); err != nil {
			return nil, types.NewExtractError(types.KindTimeout, req.URLString(),
				fmt.Errorf("%w: waiting for fetch slot: %v", types.ErrTimeout, err))
		}
		defer lf.sem.Release(1)
	}
	return lf.inner.Fetch(ctx, req)
}

func (lf *LimitedFetcher) limiterFor(host string) *rate.Limiter {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	limiter, ok := lf.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(lf.rps), 1)
		lf.limiters[host] = limiter
		lf.logger.Debug("host limiter created", "host", host, "rps", lf.rps)
	}
	return limiter
}

// Close closes the wrapped fetcher.
func (lf *LimitedFetcher) Close() error { return lf.inner.Close() }

// Type returns the wrapped fetcher's type.
func (lf *LimitedFetcher) Type() string { return lf.inner.Type() }
