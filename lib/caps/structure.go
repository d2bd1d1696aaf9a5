package caps

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Fraction is a rational field value such as a framerate.
type Fraction struct {
	Num int
	Den int
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Den)
}

// IntRange is an inclusive range of integers.
type IntRange struct {
	Min int
	Max int
}

// List holds alternative values of a field. A structure with a List field
// is not fixed.
type List []any

type field struct {
	key   string
	value any
}

// Structure is a named set of typed fields, e.g. video/x-raw with format,
// width and height.
type Structure struct {
	Name   string
	fields []field
}

func NewStructure(name string, kv ...any) *Structure {
	s := &Structure{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		s.Set(kv[i].(string), kv[i+1])
	}
	return s
}

func (s *Structure) Copy() *Structure {
	c := &Structure{Name: s.Name, fields: make([]field, len(s.fields))}
	for i, f := range s.fields {
		c.fields[i] = field{key: f.key, value: copyValue(f.value)}
	}
	return c
}

func (s *Structure) Set(key string, value any) {
	value = normaliseValue(value)
	for i := range s.fields {
		if s.fields[i].key == key {
			s.fields[i].value = value
			return
		}
	}
	s.fields = append(s.fields, field{key: key, value: value})
}

func (s *Structure) Get(key string) (any, bool) {
	for _, f := range s.fields {
		if f.key == key {
			return f.value, true
		}
	}
	return nil, false
}

func (s *Structure) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *Structure) Remove(keys ...string) {
	s.fields = slices.DeleteFunc(s.fields, func(f field) bool {
		return slices.Contains(keys, f.key)
	})
}

func (s *Structure) Keys() []string {
	keys := make([]string, len(s.fields))
	for i, f := range s.fields {
		keys[i] = f.key
	}
	return keys
}

func (s *Structure) GetString(key string) (string, bool) {
	v, ok := s.Get(key)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (s *Structure) GetInt(key string) (int, bool) {
	v, ok := s.Get(key)
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

func (s *Structure) GetFraction(key string) (Fraction, bool) {
	v, ok := s.Get(key)
	if !ok {
		return Fraction{}, false
	}
	f, ok := v.(Fraction)
	return f, ok
}

// IsFixed reports whether every field holds exactly one value.
func (s *Structure) IsFixed() bool {
	for _, f := range s.fields {
		if !isFixedValue(f.value) {
			return false
		}
	}
	return true
}

func (s *Structure) IsEqual(o *Structure) bool {
	if s.Name != o.Name || len(s.fields) != len(o.fields) {
		return false
	}
	for _, f := range s.fields {
		v, ok := o.Get(f.key)
		if !ok || !valueEqual(f.value, v) {
			return false
		}
	}
	return true
}

// Intersect returns the structure accepted by both s and o, or nil.
// Fields present in only one of them are carried over unchanged.
func (s *Structure) Intersect(o *Structure) *Structure {
	if s.Name != o.Name {
		return nil
	}
	res := &Structure{Name: s.Name}
	for _, f := range s.fields {
		ov, ok := o.Get(f.key)
		if !ok {
			res.fields = append(res.fields, field{key: f.key, value: copyValue(f.value)})
			continue
		}
		v, ok := intersectValue(f.value, ov)
		if !ok {
			return nil
		}
		res.fields = append(res.fields, field{key: f.key, value: v})
	}
	for _, f := range o.fields {
		if !s.Has(f.key) {
			res.fields = append(res.fields, field{key: f.key, value: copyValue(f.value)})
		}
	}
	return res
}

// Fixate picks the first alternative of every list and the lower bound of
// every range.
func (s *Structure) Fixate() *Structure {
	c := s.Copy()
	for i := range c.fields {
		c.fields[i].value = fixateValue(c.fields[i].value)
	}
	return c
}

func (s *Structure) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	for _, f := range s.fields {
		b.WriteString(", ")
		b.WriteString(f.key)
		b.WriteString("=")
		b.WriteString(formatValue(f.value))
	}
	return b.String()
}

func normaliseValue(v any) any {
	switch t := v.(type) {
	case []string:
		l := make(List, len(t))
		for i, s := range t {
			l[i] = s
		}
		return l
	case []int:
		l := make(List, len(t))
		for i, n := range t {
			l[i] = n
		}
		return l
	case List:
		if len(t) == 1 {
			return t[0]
		}
		return t
	}
	return v
}

func copyValue(v any) any {
	if l, ok := v.(List); ok {
		return slices.Clone(l)
	}
	return v
}

func isFixedValue(v any) bool {
	switch v.(type) {
	case List, IntRange:
		return false
	}
	return true
}

func fixateValue(v any) any {
	switch t := v.(type) {
	case List:
		if len(t) == 0 {
			return nil
		}
		return fixateValue(t[0])
	case IntRange:
		return t.Min
	}
	return v
}

func valueEqual(a, b any) bool {
	la, aList := a.(List)
	lb, bList := b.(List)
	if aList != bList {
		return false
	}
	if aList {
		if len(la) != len(lb) {
			return false
		}
		for _, x := range la {
			if !slices.ContainsFunc(lb, func(y any) bool { return valueEqual(x, y) }) {
				return false
			}
		}
		return true
	}
	return a == b
}

func intersectValue(a, b any) (any, bool) {
	if la, ok := a.(List); ok {
		var res List
		for _, x := range la {
			if v, ok := intersectValue(x, b); ok {
				res = append(res, v)
			}
		}
		return listResult(res)
	}
	if _, ok := b.(List); ok {
		return intersectValue(b, a)
	}

	ra, aRange := a.(IntRange)
	rb, bRange := b.(IntRange)
	switch {
	case aRange && bRange:
		lo, hi := max(ra.Min, rb.Min), min(ra.Max, rb.Max)
		if lo > hi {
			return nil, false
		}
		if lo == hi {
			return lo, true
		}
		return IntRange{Min: lo, Max: hi}, true
	case aRange:
		return intersectValue(b, a)
	case bRange:
		n, ok := a.(int)
		if !ok || n < rb.Min || n > rb.Max {
			return nil, false
		}
		return n, true
	}

	if a == b {
		return a, true
	}
	return nil, false
}

func listResult(l List) (any, bool) {
	switch len(l) {
	case 0:
		return nil, false
	case 1:
		return l[0], true
	}
	return l, true
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		if strings.ContainsAny(t, ",;{}[]()= ") {
			return strconv.Quote(t)
		}
		return t
	case int:
		return strconv.Itoa(t)
	case Fraction:
		return t.String()
	case IntRange:
		return fmt.Sprintf("[ %d, %d ]", t.Min, t.Max)
	case List:
		parts := make([]string, len(t))
		for i, x := range t {
			parts[i] = formatValue(x)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	}
	return fmt.Sprint(v)
}
