// Package severity maps free-text upstream severities onto Gotify priorities.
package severity

import "strings"

const (
	MinPriority     = 0
	MaxPriority     = 10
	DefaultPriority = 5
)

// rules are checked in order; the first family with a matching keyword wins.
var rules = []struct {
	keywords []string
	priority int
}{
	{[]string{"critical", "emergency"}, 10},
	{[]string{"alert", "high"}, 8},
	{[]string{"warning", "medium"}, 5},
	{[]string{"notice", "low"}, 3},
	{[]string{"info"}, 2},
}

// ToPriority maps a severity such as "Critical Outage" or "WARNING" to a
// priority in [MinPriority, MaxPriority]. Empty or unrecognised input maps to
// DefaultPriority.
func ToPriority(severity string) int {
	s := strings.ToLower(severity)
	if s == "" {
		return DefaultPriority
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(s, kw) {
				return r.priority
			}
		}
	}
	return DefaultPriority
}

// Clamp forces p into the valid priority range.
func Clamp(p int) int {
	switch {
	case p < MinPriority:
		return MinPriority
	case p > MaxPriority:
		return MaxPriority
	default:
		return p
	}
}
