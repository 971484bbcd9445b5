package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseLiteral parses a Python literal (the repr of a dict, list, tuple, str,
// int, float, bool or None) into the equivalent Go value: map[string]any,
// []any, string, int64, float64, bool or nil.
//
// Calls such as UUID('...') or datetime.datetime(2024, 1, 1) are not
// literals but show up in reprs. They are reduced to their first argument,
// or nil when there is none.
func ParseLiteral(src string) (any, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformedRecord, fmt.Sprintf(format, args...), p.pos)
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) value() (any, error) {
	switch c := p.peek(); {
	case c == 0:
		return nil, p.errorf("unexpected end of input")
	case c == '{':
		return p.dict()
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.sequence('(', ')')
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.identifier()
	default:
		return nil, p.errorf("unexpected character %q", c)
	}
}

// dict parses {k: v, ...}. A brace literal without colons is a set and
// becomes a list.
func (p *literalParser) dict() (any, error) {
	p.pos++ // {
	out := map[string]any{}
	var set []any
	for first := true; ; first = false {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			if set != nil {
				return set, nil
			}
			return out, nil
		}
		key, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if first && (p.peek() == ',' || p.peek() == '}') {
			set = []any{}
		}
		if set != nil {
			set = append(set, key)
		} else {
			if p.peek() != ':' {
				return nil, p.errorf("expected ':' after dict key")
			}
			p.pos++
			p.skipSpace()
			val, err := p.value()
			if err != nil {
				return nil, err
			}
			out[keyString(key)] = val
		}
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) sequence(open, close byte) ([]any, error) {
	p.pos++ // open
	out := []any{}
	for {
		p.skipSpace()
		if p.peek() == close {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case close:
		default:
			return nil, p.errorf("expected ',' or %q", close)
		}
	}
}

func (p *literalParser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("dangling escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case '0':
		b.WriteByte(0)
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'x':
		return p.hexEscape(b, 2)
	case 'u':
		return p.hexEscape(b, 4)
	case 'U':
		return p.hexEscape(b, 8)
	default:
		// Python keeps unknown escapes verbatim.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *literalParser) hexEscape(b *strings.Builder, n int) error {
	if p.pos+n > len(p.src) {
		return p.errorf("short \\x/\\u escape")
	}
	code, err := strconv.ParseUint(p.src[p.pos:p.pos+n], 16, 32)
	if err != nil || !utf8.ValidRune(rune(code)) {
		return p.errorf("invalid escape %q", p.src[p.pos:p.pos+n])
	}
	p.pos += n
	b.WriteRune(rune(code))
	return nil
}

func (p *literalParser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c) || c == '_':
		case c == '.' || c == 'e' || c == 'E':
			isFloat = true
		case (c == '-' || c == '+') && (p.src[p.pos-1] == 'e' || p.src[p.pos-1] == 'E'):
		default:
			return p.finishNumber(start, isFloat)
		}
		p.pos++
	}
	return p.finishNumber(start, isFloat)
}

func (p *literalParser) finishNumber(start int, isFloat bool) (any, error) {
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if !isFloat {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}

func (p *literalParser) identifier() (any, error) {
	start := p.pos
	for p.pos < len(p.src) && (isIdentPart(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	name := p.src[start:p.pos]

	// String prefixes: u'..', b'..', r'..' and friends.
	if c := p.peek(); (c == '\'' || c == '"') && len(name) <= 2 && strings.Trim(strings.ToLower(name), "ubrf") == "" {
		if strings.ContainsAny(strings.ToLower(name), "r") {
			return p.rawStr()
		}
		return p.str()
	}

	switch name {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}

	if p.peek() == '(' {
		args, err := p.sequence('(', ')')
		if err != nil {
			return nil, err
		}
		if len(args) == 0 {
			return nil, nil
		}
		return args[0], nil
	}
	p.pos = start
	return nil, p.errorf("unknown identifier %q", name)
}

// rawStr parses a raw string: backslashes are kept, but still protect the quote.
func (p *literalParser) rawStr() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case quote:
			s := p.src[start:p.pos]
			p.pos++
			return s, nil
		}
		p.pos++
	}
	return "", p.errorf("unterminated string")
}

func keyString(k any) string {
	switch v := k.(type) {
	case string:
		return v
	case nil:
		return "None"
	default:
		return fmt.Sprint(v)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
