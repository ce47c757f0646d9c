package scrape

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/IshaanNene/linkscout/internal/backend"
	"github.com/IshaanNene/linkscout/internal/extract"
	"github.com/IshaanNene/linkscout/internal/observability"
	"github.com/IshaanNene/linkscout/internal/storage"
	"github.com/IshaanNene/linkscout/internal/types"
)

// fallbackStatuses are backend answers that mean the scrape endpoint is
// missing or temporarily unavailable.
var fallbackStatuses = map[int]bool{
	http.StatusNotFound:           true,
	http.StatusMethodNotAllowed:   true,
	http.StatusNotImplemented:     true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

// Scraper is the backend side of a scrape.
type Scraper interface {
	ScrapeEnabled() bool
	ScrapeURL(ctx context.Context, rawURL string) (*types.ExtractionResult, error)
}

// Outcome is a scrape result plus, when the backend answered with an error
// that must be relayed as is, its status and body.
type Outcome struct {
	Result *types.ExtractionResult

	// BackendStatus and BackendBody are set when the backend rejected the
	// request with a status that does not trigger a local fallback.
	BackendStatus int
	BackendBody   []byte
}

// Service scrapes URLs through the backend when possible, falling back to
// the same-process extractor.
type Service struct {
	extractor *extract.Extractor
	backend   Scraper
	history   storage.History
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewService creates a scrape service. remote and history may be nil.
func NewService(extractor *extract.Extractor, remote Scraper, history storage.History, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if history == nil {
		history = storage.NopHistory{}
	}
	return &Service{
		extractor: extractor,
		backend:   remote,
		history:   history,
		metrics:   metrics,
		logger:    logger.With("component", "scrape"),
	}
}

// Scrape validates rawURL and extracts its content.
func (s *Service) Scrape(ctx context.Context, rawURL string) *Outcome {
	u, err := types.NormalizeURL(rawURL)
	if err != nil {
		return s.done(ctx, rawURL, &Outcome{Result: types.Failed(err)})
	}
	target := u.String()

	if s.backend != nil && s.backend.ScrapeEnabled() {
		result, err := s.backend.ScrapeURL(ctx, target)
		switch {
		case err == nil:
			s.metrics.RecordBackendScrape(false)
			return s.done(ctx, target, &Outcome{Result: result})
		case s.shouldFallBack(err):
			s.metrics.RecordBackendScrape(true)
			s.logger.Info("backend scrape unavailable, extracting locally", "url", target, "error", err)
		default:
			s.metrics.RecordBackendScrape(false)
			return s.done(ctx, target, relay(target, err))
		}
	}

	return s.done(ctx, target, &Outcome{Result: s.extractor.Extract(ctx, target)})
}

// Extract runs only the same-process extractor.
func (s *Service) Extract(ctx context.Context, rawURL string) *types.ExtractionResult {
	return s.done(ctx, rawURL, &Outcome{Result: s.extractor.Extract(ctx, rawURL)}).Result
}

// History returns the most recent scrape outcomes.
func (s *Service) History(ctx context.Context, limit int) ([]*types.HistoryEntry, error) {
	return s.history.List(ctx, limit)
}

func (s *Service) shouldFallBack(err error) bool {
	if backend.IsUnreachable(err) {
		return true
	}
	return fallbackStatuses[backend.StatusOf(err)]
}

func (s *Service) done(ctx context.Context, rawURL string, out *Outcome) *Outcome {
	if err := s.history.Record(ctx, types.NewHistoryEntry(rawURL, out.Result)); err != nil {
		s.logger.Warn("history record failed", "url", rawURL, "error", err)
	}
	return out
}

// relay turns a backend rejection into a failed result that keeps the
// backend's status and body.
func relay(target string, err error) *Outcome {
	var be *types.BackendError
	if !errors.As(err, &be) || be.Status == 0 {
		return &Outcome{Result: types.Failed(types.NewExtractError(types.KindNetworkError, target, err))}
	}

	result := types.Failed(types.NewHTTPError(target, be.Status))
	result.Source = types.SourceBackend
	return &Outcome{
		Result:        result,
		BackendStatus: be.Status,
		BackendBody:   be.Body,
	}
}
