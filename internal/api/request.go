package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/IshaanNene/linkscout/internal/types"
)

// Messages returned for malformed requests.
const (
	msgInvalidJSON   = "Invalid JSON in request body"
	msgURLRequired   = "URL is required"
	msgContentNeeded = "Either paragraphs or text is required"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// scrapeRequest is the body of /api/scrape-url and /api/extract.
type scrapeRequest struct {
	URL string `json:"url" validate:"required"`
}

// analyzeRequest is the body of /api/analyze. Either Paragraphs or Text
// must be present.
type analyzeRequest struct {
	URL        string               `json:"url"        validate:"omitempty,max=2048"`
	Title      string               `json:"title"      validate:"max=1024"`
	Text       string               `json:"text"`
	Paragraphs []types.ContentBlock `json:"paragraphs" validate:"omitempty,dive"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// decodeJSON reads a JSON body into dst, bounding its size.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// validateRequest runs struct validation and flattens the result.
func validateRequest(v any) []FieldError {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{
			Field:   strings.ToLower(e.Field()),
			Message: formatValidationError(e),
		})
	}
	return out
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// toBackend builds the payload forwarded for analysis. Bare text becomes a
// single paragraph.
func (req *analyzeRequest) toBackend() ([]types.ContentBlock, string, bool) {
	if len(req.Paragraphs) > 0 {
		blocks := make([]types.ContentBlock, len(req.Paragraphs))
		for i, p := range req.Paragraphs {
			p.Index = i
			if p.Type == "" {
				p.Type = types.BlockParagraph
			}
			blocks[i] = p
		}
		title := req.Title
		if title == "" {
			title = "Untitled"
		}
		return blocks, title, true
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, "", false
	}
	title := req.Title
	if title == "" {
		title = "Direct Text Analysis"
	}
	return []types.ContentBlock{{Index: 0, Text: text, Type: types.BlockParagraph}}, title, true
}
