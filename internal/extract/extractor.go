package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/fetcher"
	"github.com/IshaanNene/linkscout/internal/observability"
	"github.com/IshaanNene/linkscout/internal/types"
)

// Stage is a step of one extraction.
type Stage int

const (
	StageStart Stage = iota
	StageValidating
	StageFetching
	StageLocating
	StageExtracting
	StageExtracted
	StageSegmenting
	StageSegmented
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageValidating:
		return "validating"
	case StageFetching:
		return "fetching"
	case StageLocating:
		return "locating"
	case StageExtracting:
		return "extracting"
	case StageExtracted:
		return "extracted"
	case StageSegmenting:
		return "segmenting"
	case StageSegmented:
		return "segmented"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Extractor turns a URL into an ordered list of content blocks. It is safe
// for concurrent use.
type Extractor struct {
	fetcher    fetcher.Fetcher
	cfg        config.ExtractorConfig
	candidates []Candidate
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMetrics records every extraction into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

// New creates an Extractor that fetches pages with f.
func New(f fetcher.Fetcher, cfg config.ExtractorConfig, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	candidates, err := CompileCandidates(cfg.Candidates)
	if err != nil {
		return nil, fmt.Errorf("compile candidates: %w", err)
	}
	if cfg.TitlePlaceholder == "" {
		cfg.TitlePlaceholder = "Untitled"
	}

	e := &Extractor{
		fetcher:    f,
		cfg:        cfg,
		candidates: candidates,
		logger:     logger.With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Extract fetches rawURL and extracts its content blocks. Failures are
// reported in the result, never as a panic.
func (e *Extractor) Extract(ctx context.Context, rawURL string) *types.ExtractionResult {
	start := time.Now()
	run := &extraction{logger: e.logger.With("url", rawURL)}
	run.enter(StageStart)

	run.enter(StageValidating)
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return e.finish(run, types.Failed(err), 0, false)
	}
	req.ID = uuid.NewString()
	req.Timeout = e.cfg.Timeout
	run.logger = e.logger.With("url", req.URLString(), "request_id", req.ID)

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	run.enter(StageFetching)
	page, err := e.fetcher.Fetch(ctx, req)
	if err != nil {
		return e.finish(run, types.Failed(err), 0, false)
	}

	pageURL := page.FinalURL
	if pageURL == "" {
		pageURL = req.URLString()
	}
	result, segmented := e.process(run, page.Body, pageURL)
	run.logger.Debug("extraction complete",
		"blocks", result.Total(),
		"duration", time.Since(start),
	)
	return e.finish(run, result, page.Size, segmented)
}

// ExtractHTML runs the locate and extract stages over an already fetched
// document.
func (e *Extractor) ExtractHTML(body []byte, pageURL string) *types.ExtractionResult {
	run := &extraction{logger: e.logger.With("url", pageURL)}
	result, segmented := e.process(run, body, pageURL)
	return e.finish(run, result, int64(len(body)), segmented)
}

func (e *Extractor) finish(run *extraction, result *types.ExtractionResult, size int64, segmented bool) *types.ExtractionResult {
	if result.Success {
		run.enter(StageDone)
	} else {
		run.enter(StageFailed)
		run.logger.Debug("extraction failed", "error", result.Error)
	}
	e.metrics.RecordExtraction(result, size, segmented)
	return result
}

// process parses body and emits blocks. A panic anywhere in the traversal
// becomes a parse failure.
func (e *Extractor) process(run *extraction, body []byte, pageURL string) (result *types.ExtractionResult, segmented bool) {
	defer func() {
		if r := recover(); r != nil {
			result = types.Failed(types.NewExtractError(types.KindParseFailure, pageURL, fmt.Errorf("extraction panic: %v", r)))
			segmented = false
		}
	}()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.Failed(types.NewExtractError(types.KindParseFailure, pageURL, fmt.Errorf("parse html: %w", err))), false
	}

	run.enter(StageLocating)
	loc := Locate(doc, e.candidates, e.cfg.TitlePlaceholder)
	run.logger.Debug("container located", "candidate", loc.Candidate, "title", loc.Title)

	run.enter(StageExtracting)
	blocks := ExtractBlocks(loc.Container, e.cfg.MinBlockLength)
	if len(blocks) > 0 {
		run.enter(StageExtracted)
		return types.Succeeded(pageURL, loc.Title, blocks), false
	}

	run.enter(StageSegmenting)
	blocks = Segment(loc.Container.Text(), e.cfg.MinBlockLength, e.cfg.MinFallbackLength)
	run.enter(StageSegmented)
	return types.Succeeded(pageURL, loc.Title, blocks), true
}

// extraction tracks the stage of a single run.
type extraction struct {
	stage  Stage
	logger *slog.Logger
}

func (x *extraction) enter(s Stage) {
	x.stage = s
	x.logger.Debug("stage", "stage", s.String())
}
