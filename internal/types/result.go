package types

import (
	"encoding/json"
	"errors"
)

// BlockType is the semantic type of a content block.
type BlockType string

const (
	BlockHeading   BlockType = "heading"
	BlockList      BlockType = "list"
	BlockParagraph BlockType = "p"
)

// BlockTypeForTag maps an element name to its block type.
func BlockTypeForTag(tag string) BlockType {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return BlockHeading
	case "li":
		return BlockList
	default:
		return BlockParagraph
	}
}

// ContentBlock is one extracted unit of article text.
type ContentBlock struct {
	Index int       `json:"index"`
	Text  string    `json:"text"  validate:"required"`
	Type  BlockType `json:"type"`
}

// Result sources.
const (
	SourceLocal   = "local"
	SourceBackend = "backend"
)

// ExtractionResult is the outcome of one fetch-extract cycle. Successful and
// failed results serialize to different shapes.
type ExtractionResult struct {
	Success bool
	URL     string
	Title   string
	Blocks  []ContentBlock

	// Failure details.
	Kind       ErrorKind
	Error      string
	Message    string
	Status     int
	StatusText string

	// Source records which extractor produced the result.
	Source string
}

// Succeeded builds a successful result.
func Succeeded(url, title string, blocks []ContentBlock) *ExtractionResult {
	if blocks == nil {
		blocks = []ContentBlock{}
	}
	return &ExtractionResult{
		Success: true,
		URL:     url,
		Title:   title,
		Blocks:  blocks,
		Source:  SourceLocal,
	}
}

// Failed builds a failure result from err. Errors that are not an
// ExtractError are reported as parse failures.
func Failed(err error) *ExtractionResult {
	var ee *ExtractError
	if !errors.As(err, &ee) {
		ee = NewExtractError(KindParseFailure, "", err)
	}
	return &ExtractionResult{
		Success:    false,
		URL:        ee.URL,
		Kind:       ee.Kind,
		Error:      ee.Code(),
		Message:    ee.Hint(),
		Status:     ee.Status,
		StatusText: ee.StatusText,
		Source:     SourceLocal,
	}
}

// Total returns the number of blocks.
func (r *ExtractionResult) Total() int { return len(r.Blocks) }

type successJSON struct {
	Success         bool           `json:"success"`
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	Paragraphs      []ContentBlock `json:"paragraphs"`
	TotalParagraphs int            `json:"total_paragraphs"`
	Source          string         `json:"source,omitempty"`
}

type failureJSON struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	Message    string `json:"message"`
	URL        string `json:"url,omitempty"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"status_text,omitempty"`
	Source     string `json:"source,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r ExtractionResult) MarshalJSON() ([]byte, error) {
	if r.Success {
		blocks := r.Blocks
		if blocks == nil {
			blocks = []ContentBlock{}
		}
		return json.Marshal(successJSON{
			Success:         true,
			URL:             r.URL,
			Title:           r.Title,
			Paragraphs:      blocks,
			TotalParagraphs: len(blocks),
			Source:          r.Source,
		})
	}
	return json.Marshal(failureJSON{
		Success:    false,
		Error:      r.Error,
		Message:    r.Message,
		URL:        r.URL,
		Status:     r.Status,
		StatusText: r.StatusText,
		Source:     r.Source,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both shapes.
func (r *ExtractionResult) UnmarshalJSON(data []byte) error {
	var raw struct {
		Success    bool           `json:"success"`
		URL        string         `json:"url"`
		Title      string         `json:"title"`
		Paragraphs []ContentBlock `json:"paragraphs"`
		Error      string         `json:"error"`
		Message    string         `json:"message"`
		Status     int            `json:"status"`
		StatusText string         `json:"status_text"`
		Source     string         `json:"source"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ExtractionResult{
		Success:    raw.Success,
		URL:        raw.URL,
		Title:      raw.Title,
		Blocks:     raw.Paragraphs,
		Error:      raw.Error,
		Message:    raw.Message,
		Status:     raw.Status,
		StatusText: raw.StatusText,
		Source:     raw.Source,
	}
	return nil
}
