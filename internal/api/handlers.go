package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/linkscout/internal/backend"
	"github.com/IshaanNene/linkscout/internal/config"
	"github.com/IshaanNene/linkscout/internal/types"
)

// Probe deadlines for /api/test-backend.
const (
	healthProbeTimeout = 10 * time.Second
	scrapeProbeTimeout = 15 * time.Second
	probeTarget        = "https://example.com"
)

const analyzeFailedMessage = "Failed to analyze content. Please ensure the backend server is running."

// StatusFor maps a failure kind to the HTTP status returned to callers.
func StatusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindInvalidInput:
		return http.StatusBadRequest
	case types.KindTimeout:
		return http.StatusGatewayTimeout
	case types.KindNetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) decodeScrapeRequest(w http.ResponseWriter, r *http.Request) (*scrapeRequest, bool) {
	var req scrapeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": msgInvalidJSON})
		return nil, false
	}
	if errs := validateRequest(&req); errs != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": msgURLRequired})
		return nil, false
	}
	return &req, true
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScrapeRequest(w, r)
	if !ok {
		return
	}

	out := s.scraper.Scrape(r.Context(), req.URL)
	if out.BackendStatus != 0 {
		s.relayBackendError(w, out.BackendStatus, out.BackendBody)
		return
	}
	s.writeResult(w, out.Result)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScrapeRequest(w, r)
	if !ok {
		return
	}
	s.writeResult(w, s.scraper.Extract(r.Context(), req.URL))
}

func (s *Server) writeResult(w http.ResponseWriter, result *types.ExtractionResult) {
	if result.Success {
		s.jsonResponse(w, http.StatusOK, result)
		return
	}
	s.jsonResponse(w, StatusFor(result.Kind), result)
}

// relayBackendError forwards a backend rejection with its status, keeping
// its error and message fields when it sent any.
func (s *Server) relayBackendError(w http.ResponseWriter, status int, body []byte) {
	var data struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &data)

	if data.Error == "" {
		data.Error = fmt.Sprintf("Backend error (%d)", status)
	}
	if data.Message == "" {
		data.Message = "Unable to fetch content from this URL."
	}
	s.jsonResponse(w, status, map[string]any{
		"success":       false,
		"error":         data.Error,
		"message":       data.Message,
		"backendStatus": status,
		"backendUrl":    s.backend.BaseURL(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": msgInvalidJSON})
		return
	}
	if errs := validateRequest(&req); errs != nil {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": "validation failed", "details": errs})
		return
	}

	blocks, title, ok := req.toBackend()
	if !ok {
		s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": msgContentNeeded})
		return
	}

	verdict, err := s.backend.Analyze(r.Context(), &backend.AnalyzeRequest{
		URL:        req.URL,
		Title:      title,
		Paragraphs: blocks,
	})
	s.metrics.RecordAnalyze(err != nil)
	if err != nil {
		s.logger.Error("analysis failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
			"message": analyzeFailedMessage,
		})
		return
	}
	s.rawJSONResponse(w, http.StatusOK, verdict)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	data, err := s.backend.Health(r.Context())
	if err != nil {
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status":        "unhealthy",
			"web_interface": "healthy",
			"backend":       "offline",
			"error":         err.Error(),
			"timestamp":     now,
		})
		return
	}

	data["web_interface"] = "healthy"
	data["timestamp"] = now
	s.jsonResponse(w, http.StatusOK, data)
}

func (s *Server) handleTestBackend(w http.ResponseWriter, r *http.Request) {
	var health, scrape backend.Probe

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		health = s.backend.ProbeHealth(ctx, healthProbeTimeout)
		return nil
	})
	g.Go(func() error {
		scrape = s.backend.ProbeScrape(ctx, probeTarget, scrapeProbeTimeout)
		return nil
	})
	_ = g.Wait()

	w.Header().Set("Cache-Control", "no-store, max-age=0")
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"backendUrl": s.backend.BaseURL(),
		"tests": map[string]any{
			"health":    health,
			"scrapeUrl": scrape,
		},
		"environment": s.environment(),
	})
}

func (s *Server) environment() map[string]any {
	backendEnv := os.Getenv("LINKSCOUT_BACKEND_URL")
	if backendEnv == "" {
		backendEnv = "NOT SET"
	}
	return map[string]any{
		"LINKSCOUT_BACKEND_URL": backendEnv,
		"version":               config.Version,
		"fetcher":               s.cfg.Fetcher.Type,
		"storage":               s.cfg.Storage.Type,
		"backend_scrape":        s.cfg.Backend.ScrapeEnabled,
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.jsonResponse(w, http.StatusBadRequest, map[string]any{"success": false, "error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := s.scraper.History(ctx, limit)
	if err != nil {
		s.logger.Error("history listing failed", "error", err)
		s.jsonResponse(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "history unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"entries": entries,
		"count":   len(entries),
	})
}
