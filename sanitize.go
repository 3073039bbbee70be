package yokopoke

import (
	"strings"
	"unicode"
)

// DefaultMaxInput is the number of characters of a single message kept before truncation.
const DefaultMaxInput = 1000

const truncatedMark = "... (truncado)"

// SanitizeInput repairs invalid UTF-8, strips control characters other than
// newline, tab and carriage return, and truncates the text to limit runes.
// Oversized input is cut rather than rejected so the customer still gets an answer.
func SanitizeInput(input string, limit int) string {
	input = strings.ToValidUTF8(input, "")

	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if !clean {
		var b strings.Builder
		b.Grow(len(input))
		for _, r := range input {
			if !unicode.IsControl(r) || isSafeControl(r) {
				b.WriteRune(r)
			}
		}
		input = b.String()
	}

	if limit > 0 {
		if runes := []rune(input); len(runes) > limit {
			input = string(runes[:limit]) + truncatedMark
		}
	}
	return strings.TrimSpace(input)
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
