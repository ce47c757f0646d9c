package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/linkscout/internal/config"
)

// noiseSelector matches markup that never contributes content blocks.
const noiseSelector = "script, style, nav, header, footer, aside, iframe, noscript"

// Candidate is a compiled structural content-container candidate.
type Candidate struct {
	Selector string
	Type     string // css, xpath
	css      goquery.Matcher
}

// CompileCandidates validates and compiles the configured candidates. An
// empty list yields the default ordering.
func CompileCandidates(cfgs []config.Candidate) ([]Candidate, error) {
	if len(cfgs) == 0 {
		cfgs = config.DefaultCandidates()
	}

	out := make([]Candidate, 0, len(cfgs))
	for i, c := range cfgs {
		cand := Candidate{Selector: c.Selector, Type: c.Type}
		switch c.Type {
		case "", "css":
			sel, err := cascadia.Compile(c.Selector)
			if err != nil {
				return nil, fmt.Errorf("candidate %d: invalid css selector %q: %w", i, c.Selector, err)
			}
			cand.Type = "css"
			cand.css = sel
		case "xpath":
			if _, err := htmlquery.QueryAll(&html.Node{Type: html.DocumentNode}, c.Selector); err != nil {
				return nil, fmt.Errorf("candidate %d: invalid xpath %q: %w", i, c.Selector, err)
			}
		default:
			return nil, fmt.Errorf("candidate %d: unknown type %q", i, c.Type)
		}
		out = append(out, cand)
	}
	return out, nil
}

// match returns the first element matched by the candidate, or an empty
// selection.
func (c Candidate) match(doc *goquery.Document) *goquery.Selection {
	if c.Type == "xpath" {
		if len(doc.Nodes) == 0 {
			return doc.Selection.Slice(0, 0)
		}
		node, err := htmlquery.Query(doc.Nodes[0], c.Selector)
		if err != nil || node == nil {
			return doc.Selection.Slice(0, 0)
		}
		return doc.FindNodes(node)
	}
	return doc.FindMatcher(c.css).First()
}

// Located is the output of Locate: the content subtree and the page title.
type Located struct {
	Container *goquery.Selection
	Title     string
	// Candidate is the selector that matched, "body" or "document".
	Candidate string
}

// Locate computes the page title, strips noise markup from doc and selects
// the first candidate container that matches. It mutates doc.
func Locate(doc *goquery.Document, candidates []Candidate, placeholder string) Located {
	title := pageTitle(doc, placeholder)

	doc.Find(noiseSelector).Remove()

	for _, c := range candidates {
		if sel := c.match(doc); sel.Length() > 0 {
			return Located{Container: sel, Title: title, Candidate: c.Selector}
		}
	}

	if body := doc.Find("body").First(); body.Length() > 0 {
		return Located{Container: body, Title: title, Candidate: "body"}
	}
	return Located{Container: doc.Selection, Title: title, Candidate: "document"}
}

// pageTitle prefers <title>, then the first <h1>, then placeholder.
func pageTitle(doc *goquery.Document, placeholder string) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := strings.TrimSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return placeholder
}
