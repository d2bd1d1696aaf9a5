package caps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrParse = errors.New("invalid caps string")

// Parse reads caps in the form
//
//	video/x-raw(memory:GLMemory), format={ RGBA, BGRA }, width=[ 1, 4096 ]; video/x-raw, format=I420
//
// Values may carry an optional type prefix such as (string) or (int).
func Parse(s string) (*Caps, error) {
	s = strings.TrimSpace(s)
	c := New()
	if s == "" || s == "EMPTY" {
		return c, nil
	}
	for _, part := range splitTopLevel(s, ';') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, feats, err := parseStructure(part)
		if err != nil {
			return nil, err
		}
		c.Append(st, feats)
	}
	return c, nil
}

func parseStructure(s string) (*Structure, Features, error) {
	tokens := splitTopLevel(s, ',')
	head := strings.TrimSpace(tokens[0])
	name := head
	var feats Features
	if open := strings.IndexByte(head, '('); open >= 0 {
		if !strings.HasSuffix(head, ")") {
			return nil, nil, fmt.Errorf("%w: unterminated features in %q", ErrParse, head)
		}
		name = strings.TrimSpace(head[:open])
		var names []string
		for _, f := range strings.Split(head[open+1:len(head)-1], ",") {
			if f = strings.TrimSpace(f); f != "" {
				names = append(names, f)
			}
		}
		feats = NewFeatures(names...)
	}
	if name == "" || strings.ContainsAny(name, "=\"") {
		return nil, nil, fmt.Errorf("%w: bad media type %q", ErrParse, name)
	}

	st := &Structure{Name: name}
	for _, tok := range tokens[1:] {
		key, raw, ok := strings.Cut(tok, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("%w: expected key=value, got %q", ErrParse, strings.TrimSpace(tok))
		}
		v, err := parseValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("field %s: %w", key, err)
		}
		st.Set(key, v)
	}
	return st, feats, nil
}

func parseValue(s string) (any, error) {
	if strings.HasPrefix(s, "(") {
		if end := strings.IndexByte(s, ')'); end > 0 {
			s = strings.TrimSpace(s[end+1:])
		}
	}
	switch {
	case s == "":
		return nil, fmt.Errorf("%w: empty value", ErrParse)
	case strings.HasPrefix(s, "{"):
		if !strings.HasSuffix(s, "}") {
			return nil, fmt.Errorf("%w: unterminated list %q", ErrParse, s)
		}
		var l List
		for _, item := range splitTopLevel(s[1:len(s)-1], ',') {
			v, err := parseValue(strings.TrimSpace(item))
			if err != nil {
				return nil, err
			}
			l = append(l, v)
		}
		return l, nil
	case strings.HasPrefix(s, "["):
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("%w: unterminated range %q", ErrParse, s)
		}
		bounds := strings.Split(s[1:len(s)-1], ",")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: range needs two bounds: %q", ErrParse, s)
		}
		lo, err1 := strconv.Atoi(strings.TrimSpace(bounds[0]))
		hi, err2 := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err1 != nil || err2 != nil || lo > hi {
			return nil, fmt.Errorf("%w: bad range %q", ErrParse, s)
		}
		return IntRange{Min: lo, Max: hi}, nil
	case strings.HasPrefix(s, "\""):
		str, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrParse, err)
		}
		return str, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.Atoi(num)
		d, err2 := strconv.Atoi(den)
		if err1 == nil && err2 == nil {
			return Fraction{Num: n, Den: d}, nil
		}
	}
	return s, nil
}

// splitTopLevel splits s on sep, ignoring separators nested in brackets,
// braces, parentheses or quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	quoted := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == '"' && (i == 0 || s[i-1] != '\\'):
			quoted = !quoted
		case quoted:
		case ch == '{' || ch == '[' || ch == '(':
			depth++
		case ch == '}' || ch == ']' || ch == ')':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
