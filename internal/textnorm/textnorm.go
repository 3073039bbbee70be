// Package textnorm normalizes customer text for accent- and case-insensitive keyword matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics, replaces punctuation with spaces
// and collapses whitespace. Characters used by reply ids (':', '_', '-', '/')
// are kept so "opt:atun" or "/reset" survive.
func Normalize(s string) string {
	// A Chain carries state, so a fresh one is built per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	space := true
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == ':' || r == '_' || r == '-' || r == '/':
			b.WriteRune(r)
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// HasWord reports whether the normalized text contains phrase as whole words.
func HasWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// HasAny reports whether any phrase occurs as whole words in text.
func HasAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if HasWord(text, p) {
			return true
		}
	}
	return false
}

// Equals reports whether text is exactly one of the phrases.
func Equals(text string, phrases ...string) bool {
	for _, p := range phrases {
		if text == p {
			return true
		}
	}
	return false
}

// Index returns the word-aligned position of phrase in text, or -1.
func Index(text, phrase string) int {
	i := strings.Index(" "+text+" ", " "+phrase+" ")
	if i < 0 {
		return -1
	}
	return i
}

// Truncate shortens s to at most n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
