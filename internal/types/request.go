package types

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ExtractionRequest is the caller-facing request body.
type ExtractionRequest struct {
	URL string `json:"url"`
}

// Request is a normalized fetch request handed to a fetcher.
type Request struct {
	// URL is the absolute http(s) target.
	URL *url.URL

	// Headers are extra HTTP headers to send.
	Headers http.Header

	// Timeout bounds the fetch. Zero means the fetcher default.
	Timeout time.Duration

	// ID correlates log lines for one extraction.
	ID string
}

// NormalizeURL trims raw, prepends https:// when it carries no http(s)
// scheme, and validates the result as an absolute URL with a host.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, NewExtractError(KindInvalidInput, "", ErrEmptyURL)
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, NewExtractError(KindInvalidInput, raw, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, NewExtractError(KindInvalidInput, raw, ErrInvalidURL)
	}
	return u, nil
}

// NewRequest normalizes rawURL into a Request.
func NewRequest(rawURL string) (*Request, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return &Request{
		URL:     u,
		Headers: make(http.Header),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
