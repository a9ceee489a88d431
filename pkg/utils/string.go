package utils

import (
	"strings"
	"unicode/utf8"
)

// NormalizeWhitespace replaces every whitespace run with a single space and trims the ends.
func NormalizeWhitespace(str string) string {
	return strings.Join(strings.Fields(str), " ")
}

// TruncateString truncates str to at most maxLength runes, appending "..." when cut.
func TruncateString(str string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	if utf8.RuneCountInString(str) <= maxLength {
		return str
	}

	runes := []rune(str)

	return string(runes[:maxLength]) + "..."
}
