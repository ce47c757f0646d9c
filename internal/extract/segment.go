package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/IshaanNene/linkscout/internal/types"
)

// segmentBoundary matches a blank-line run or the whitespace after a period.
var segmentBoundary = regexp.MustCompile(`\n\s*\n|\.\s+`)

// Segment splits flattened text into paragraph blocks. Text shorter than
// minTotal characters yields no blocks; pieces shorter than minLen are
// dropped. A period that ends a sentence stays with its sentence.
func Segment(text string, minLen, minTotal int) []types.ContentBlock {
	blocks := []types.ContentBlock{}

	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minTotal {
		return blocks
	}

	for _, piece := range splitSegments(text) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) < minLen {
			continue
		}
		blocks = append(blocks, types.ContentBlock{
			Index: len(blocks),
			Text:  piece,
			Type:  types.BlockParagraph,
		})
	}
	return blocks
}

func splitSegments(text string) []string {
	var pieces []string
	last := 0
	for _, m := range segmentBoundary.FindAllStringIndex(text, -1) {
		end := m[0]
		if text[m[0]] == '.' {
			end++
		}
		pieces = append(pieces, text[last:end])
		last = m[1]
	}
	return append(pieces, text[last:])
}
