// Package corpus loads and chunks the agronomy knowledge files.
package corpus

import (
	"strings"
	"unicode"
)

// NormalizeText prepares raw text for embedding: truncate to maxChars,
// replace characters other than word characters, periods and commas with
// spaces, collapse whitespace, lowercase. Chunks shorter than 20 runes
// after normalization are discarded by the loader.
func NormalizeText(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = 1000
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		runes = runes[:maxChars]
	}

	var b strings.Builder
	b.Grow(len(runes))
	lastSpace := true
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' || r == ',':
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
