package types

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout              = errors.New("request timed out")
	ErrInvalidURL           = errors.New("invalid URL")
	ErrEmptyURL             = errors.New("URL is required")
	ErrBackendNotConfigured = errors.New("analysis backend not configured")
)

// ErrorKind classifies an extraction failure.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindTimeout
	KindNetworkError
	KindHTTPError
	KindParseFailure
)

// Code returns the short machine-oriented code for the kind.
func (k ErrorKind) Code() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindTimeout:
		return "timeout"
	case KindNetworkError:
		return "network_error"
	case KindHTTPError:
		return "http_error"
	case KindParseFailure:
		return "parse_failure"
	default:
		return "unknown"
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindTimeout:
		return "Timeout"
	case KindNetworkError:
		return "NetworkError"
	case KindHTTPError:
		return "HttpError"
	case KindParseFailure:
		return "ParseFailure"
	default:
		return "Unknown"
	}
}

// ExtractError is the single failure type surfaced by the extraction pipeline.
type ExtractError struct {
	Kind       ErrorKind
	URL        string
	Status     int    // set for KindHTTPError
	StatusText string // set for KindHTTPError
	Err        error
}

// NewExtractError builds an ExtractError of the given kind.
func NewExtractError(kind ErrorKind, rawURL string, err error) *ExtractError {
	return &ExtractError{Kind: kind, URL: rawURL, Err: err}
}

// NewHTTPError builds a KindHTTPError for a non-2xx upstream status.
func NewHTTPError(rawURL string, status int) *ExtractError {
	text := http.StatusText(status)
	return &ExtractError{
		Kind:       KindHTTPError,
		URL:        rawURL,
		Status:     status,
		StatusText: text,
		Err:        fmt.Errorf("HTTP %d %s", status, text),
	}
}

func (e *ExtractError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s for %s (status %d): %v", e.Kind, e.URL, e.Status, e.Err)
	}
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Code returns the short machine-oriented error code.
func (e *ExtractError) Code() string { return e.Kind.Code() }

// Hint returns a human-readable explanation suitable for end users.
func (e *ExtractError) Hint() string {
	switch e.Kind {
	case KindInvalidInput:
		if errors.Is(e.Err, ErrEmptyURL) {
			return "Please provide a URL to analyze."
		}
		return "The URL could not be understood. Please check it and try again."
	case KindTimeout:
		return "The site took too long to respond. Please try again later."
	case KindNetworkError:
		return "Could not connect to the site. Please check the URL and your connection."
	case KindHTTPError:
		switch {
		case e.Status == http.StatusForbidden || e.Status == http.StatusTooManyRequests:
			return "The site may be blocking automated requests."
		case e.Status == http.StatusNotFound:
			return "The page was not found. Please check the URL."
		case e.Status >= 500:
			return "The site returned a server error. Please try again later."
		}
		return "Unable to fetch content from this URL. The site may be blocking automated requests."
	case KindParseFailure:
		return "The page content could not be processed."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// KindOf reports the ErrorKind carried by err, or 0 when err is not an ExtractError.
func KindOf(err error) ErrorKind {
	var ee *ExtractError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return 0
}

// BackendError wraps failures talking to the remote analysis backend.
type BackendError struct {
	Endpoint string
	Status   int
	Body     []byte
	Err      error
}

func (e *BackendError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend error at %s (status %d): %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("backend error at %s: %v", e.Endpoint, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in the history store.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
