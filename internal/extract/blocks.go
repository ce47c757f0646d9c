package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/linkscout/internal/types"
)

const blockSelector = "h1, h2, h3, h4, h5, h6, li, p"

// ExtractBlocks walks headings, list items and paragraphs under container in
// document order and returns the ones that carry real content. Blocks
// shorter than minLen characters and blocks that are nothing but a single
// link label are dropped.
func ExtractBlocks(container *goquery.Selection, minLen int) []types.ContentBlock {
	blocks := []types.ContentBlock{}

	container.Find(blockSelector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if utf8.RuneCountInString(text) < minLen {
			return
		}
		if isLinkOnly(sel, text) {
			return
		}
		blocks = append(blocks, types.ContentBlock{
			Index: len(blocks),
			Text:  text,
			Type:  types.BlockTypeForTag(goquery.NodeName(sel)),
		})
	})

	return blocks
}

// isLinkOnly reports whether sel contains exactly one link whose text is the
// element's whole text.
func isLinkOnly(sel *goquery.Selection, text string) bool {
	links := sel.Find("a")
	if links.Length() != 1 {
		return false
	}
	return strings.TrimSpace(links.Text()) == text
}
