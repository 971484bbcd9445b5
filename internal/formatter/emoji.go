package formatter

import "strings"

var continentEmoji = map[string]string{
	"AF": "🌍",
	"EU": "🌍",
	"AS": "🌏",
	"OC": "🌏",
	"NA": "🌎",
	"SA": "🌎",
	"AN": "🧊",
}

// ContinentEmoji maps a two-letter continent code to a globe emoji.
func ContinentEmoji(code string) string {
	if e, ok := continentEmoji[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return e
	}
	return "🌐"
}

// CountryEmoji builds the flag for an ISO 3166-1 alpha-2 code out of
// regional indicator symbols. Anything else yields "".
func CountryEmoji(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < 2; i++ {
		c := code[i]
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(rune(0x1F1E6 + int(c-'A')))
	}
	return b.String()
}

// withEmoji prefixes value with emoji when there is one.
func withEmoji(emoji, value string) string {
	if emoji == "" {
		return value
	}
	return emoji + " " + value
}
