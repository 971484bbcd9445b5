package parser

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

var (
	// ErrRecordNotFound means the prefix is absent or its braces never balance.
	ErrRecordNotFound = errors.New("embedded record not found")
	// ErrMalformedRecord means a record was found but is not a valid literal.
	ErrMalformedRecord = errors.New("malformed embedded record")
)

var (
	markerMu sync.Mutex
	markers  = map[string]*regexp.Regexp{}
)

// markerFor returns the prefix-safe marker regex for prefix. The leading word
// boundary stops "login:" from matching inside "xlogin:", and the literal colon
// stops it from matching "login_failed:".
func markerFor(prefix string) *regexp.Regexp {
	markerMu.Lock()
	defer markerMu.Unlock()
	re, ok := markers[prefix]
	if !ok {
		re = regexp.MustCompile(`\b` + regexp.QuoteMeta(prefix) + `:\s*`)
		markers[prefix] = re
	}
	return re
}

// ExtractRecord returns the first balanced {...} substring that follows
// "prefix:" in body. Quoted strings inside the record are skipped while
// counting, so braces in values do not affect nesting.
func ExtractRecord(body, prefix string) (string, error) {
	loc := markerFor(prefix).FindStringIndex(body)
	if loc == nil {
		return "", fmt.Errorf("%w: no %q marker", ErrRecordNotFound, prefix+":")
	}

	rest := body[loc[1]:]
	start := -1
	for i := 0; i < len(rest); i++ {
		if rest[i] == '{' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("%w: no opening brace after %q", ErrRecordNotFound, prefix+":")
	}

	depth := 0
	for i := start; i < len(rest); i++ {
		switch c := rest[i]; c {
		case '\'', '"':
			end := skipString(rest, i)
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated string in %q record", ErrRecordNotFound, prefix)
			}
			i = end
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced braces in %q record", ErrRecordNotFound, prefix)
}

// skipString returns the index of the quote closing the string opened at
// s[open], or -1 if the input ends first.
func skipString(s string, open int) int {
	quote := s[open]
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}
