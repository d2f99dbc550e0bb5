package memory

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxHighlights caps the excerpts attached to a single search result.
const maxHighlights = 2

// highlightWindow is the number of bytes of context kept on each side of a
// matched term.
const highlightWindow = 40

// highlights extracts short excerpts of content around occurrences of the
// query terms. Matching is case-insensitive; at most maxHighlights distinct
// excerpts are returned. An empty slice means no term occurs verbatim in the
// content; the item may still be relevant through vector similarity.
func highlights(content string, terms []string) []string {
	if content == "" || len(terms) == 0 {
		return nil
	}

	lower, offsets := foldContent(content)
	var out []string
	seen := make(map[string]struct{})

	for _, term := range terms {
		if len(out) >= maxHighlights {
			break
		}
		idx := strings.Index(lower, term)
		if idx < 0 {
			continue
		}
		matchStart := offsets[idx]
		matchEnd := offsets[idx+len(term)]

		start := matchStart - highlightWindow
		if start < 0 {
			start = 0
		}
		for start > 0 && !utf8.RuneStart(content[start]) {
			start--
		}
		end := matchEnd + highlightWindow
		if end > len(content) {
			end = len(content)
		}
		for end < len(content) && !utf8.RuneStart(content[end]) {
			end++
		}

		excerpt := strings.TrimSpace(content[start:end])
		if start > 0 {
			excerpt = "…" + excerpt
		}
		if end < len(content) {
			excerpt += "…"
		}

		if _, dup := seen[excerpt]; dup {
			continue
		}
		seen[excerpt] = struct{}{}
		out = append(out, excerpt)
	}
	return out
}

// foldContent lower-cases content rune by rune, mirroring strings.ToLower,
// and records for every byte of the folded string the byte offset of the
// originating rune in content. Case foldings can change a rune's encoded
// width, so indices found in the folded string are translated through the
// offset table instead of applied to content directly. A trailing sentinel
// maps the folded length back to len(content) so exclusive match ends
// translate the same way.
func foldContent(content string) (string, []int) {
	var b strings.Builder
	b.Grow(len(content))
	offsets := make([]int, 0, len(content)+1)
	for i, r := range content {
		lr := unicode.ToLower(r)
		for j := 0; j < utf8.RuneLen(lr); j++ {
			offsets = append(offsets, i)
		}
		b.WriteRune(lr)
	}
	offsets = append(offsets, len(content))
	return b.String(), offsets
}
