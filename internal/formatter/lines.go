package formatter

import "strings"

// Lines accumulates message fragments in order. The zero value is ready to use.
type Lines struct {
	lines []string
}

func (l *Lines) Add(line string) {
	l.lines = append(l.lines, line)
}

// AddField adds a bold "Label: value" line preceded by a blank line.
func (l *Lines) AddField(label, value string) {
	l.Add("\n**" + label + ":** " + value)
}

// Lines returns a copy of the accumulated fragments.
func (l *Lines) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Result joins the fragments with newlines. It does not modify l.
func (l *Lines) Result() string {
	return strings.Join(l.lines, "\n")
}

func (l *Lines) Len() int {
	return len(l.lines)
}

func (l *Lines) Clear() {
	l.lines = nil
}
