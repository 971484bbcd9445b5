package util

import (
	"strings"
	"unicode"
)

// MaskSecret keeps the first two characters of a credential and hides the rest.
func MaskSecret(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "****"
	default:
		return s[:2] + strings.Repeat("*", len(s)-2)
	}
}

// TruncateForLog shortens free text for log fields and drops control characters
// so webhook bodies cannot forge log lines.
func TruncateForLog(s string, max int) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
