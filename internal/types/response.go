package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is the raw result of a successful fetch.
type Page struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the decoded response body.
	Body []byte

	// Request is a reference to the original request.
	Request *Request

	// ContentType is the MIME type of the response.
	ContentType string

	// Size is the length of Body in bytes.
	Size int64

	// FinalURL is the URL after any redirects.
	FinalURL string

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration
}

// NewPage creates a Page from an http.Response and its decoded body.
func NewPage(req *Request, httpResp *http.Response, body []byte, duration time.Duration) *Page {
	finalURL := req.URLString()
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Page{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		Request:       req,
		ContentType:   httpResp.Header.Get("Content-Type"),
		Size:          int64(len(body)),
		FinalURL:      finalURL,
		FetchDuration: duration,
	}
}

// NewBrowserPage creates a Page from headless browser output.
func NewBrowserPage(req *Request, body []byte, finalURL string, duration time.Duration) *Page {
	return &Page{
		StatusCode:    http.StatusOK,
		Headers:       make(http.Header),
		Body:          body,
		Request:       req,
		ContentType:   "text/html",
		Size:          int64(len(body)),
		FinalURL:      finalURL,
		FetchDuration: duration,
	}
}

// Document parses the body into a goquery document.
func (p *Page) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
}

// IsSuccess returns true if the response status is 2xx.
func (p *Page) IsSuccess() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}
