// Package caps describes media formats: an ordered set of structures, each
// tagged with the memory and meta features a buffer must carry.
package caps

import (
	"slices"
	"strings"
)

const (
	FeatureMemorySystem      = "memory:SystemMemory"
	FeatureMemoryGL          = "memory:GLMemory"
	FeatureMemoryEGLImage    = "memory:EGLImage"
	FeatureMetaTextureUpload = "meta:TextureUploadMeta"
	FeatureMetaOverlay       = "meta:OverlayComposition"
)

const MediaTypeVideoRaw = "video/x-raw"

// Features is a sorted set of feature names. The empty set stands for
// system memory.
type Features []string

func NewFeatures(names ...string) Features {
	f := Features{}
	for _, n := range names {
		if n == FeatureMemorySystem || slices.Contains(f, n) {
			continue
		}
		f = append(f, n)
	}
	slices.Sort(f)
	return f
}

func (f Features) Contains(name string) bool {
	if name == FeatureMemorySystem && len(f) == 0 {
		return true
	}
	return slices.Contains(f, name)
}

func (f Features) IsEqual(o Features) bool {
	return slices.Equal(f, o)
}

func (f Features) String() string {
	if len(f) == 0 {
		return ""
	}
	return "(" + strings.Join(f, ", ") + ")"
}

type entry struct {
	structure *Structure
	features  Features
}

// Caps is an ordered list of acceptable formats. Earlier entries are
// preferred over later ones.
type Caps struct {
	entries []entry
}

func New() *Caps {
	return &Caps{}
}

func FromStructure(s *Structure, features Features) *Caps {
	c := &Caps{}
	c.Append(s, features)
	return c
}

// MustParse is Parse for static caps known to be valid.
func MustParse(s string) *Caps {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Caps) Append(s *Structure, features Features) {
	c.entries = append(c.entries, entry{structure: s, features: NewFeatures(features...)})
}

func (c *Caps) Size() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (c *Caps) Structure(i int) *Structure {
	return c.entries[i].structure
}

func (c *Caps) Features(i int) Features {
	return c.entries[i].features
}

func (c *Caps) IsEmpty() bool {
	return c.Size() == 0
}

func (c *Caps) Copy() *Caps {
	if c == nil {
		return nil
	}
	res := &Caps{entries: make([]entry, len(c.entries))}
	for i, e := range c.entries {
		res.entries[i] = entry{structure: e.structure.Copy(), features: slices.Clone(e.features)}
	}
	return res
}

// IsFixed reports whether c describes exactly one format without
// alternatives.
func (c *Caps) IsFixed() bool {
	return c.Size() == 1 && c.entries[0].structure.IsFixed()
}

// IsEqual reports whether both caps hold the same entries, in any order.
func (c *Caps) IsEqual(o *Caps) bool {
	if c.Size() != o.Size() {
		return false
	}
	for _, e := range c.entries {
		if !o.contains(e) {
			return false
		}
	}
	for _, e := range o.entries {
		if !c.contains(e) {
			return false
		}
	}
	return true
}

func (c *Caps) contains(e entry) bool {
	if c == nil {
		return false
	}
	return slices.ContainsFunc(c.entries, func(x entry) bool {
		return x.features.IsEqual(e.features) && x.structure.IsEqual(e.structure)
	})
}

// Merge returns c followed by the entries of o that c does not already hold.
func (c *Caps) Merge(o *Caps) *Caps {
	res := c.Copy()
	if res == nil {
		res = New()
	}
	for i := 0; i < o.Size(); i++ {
		e := o.entries[i]
		if !res.contains(e) {
			res.entries = append(res.entries, entry{structure: e.structure.Copy(), features: slices.Clone(e.features)})
		}
	}
	return res
}

// Simplify drops duplicate entries, keeping the first occurrence.
func (c *Caps) Simplify() *Caps {
	return New().Merge(c)
}

// Intersect returns the formats accepted by both c and filter, in the order
// of filter.
func (c *Caps) Intersect(filter *Caps) *Caps {
	res := New()
	for i := 0; i < filter.Size(); i++ {
		fe := filter.entries[i]
		for _, e := range c.entries {
			if !e.features.IsEqual(fe.features) {
				continue
			}
			s := fe.structure.Intersect(e.structure)
			if s == nil {
				continue
			}
			ne := entry{structure: s, features: slices.Clone(fe.features)}
			if !res.contains(ne) {
				res.entries = append(res.entries, ne)
			}
		}
	}
	return res
}

func (c *Caps) CanIntersect(o *Caps) bool {
	return !c.Intersect(o).IsEmpty()
}

// WithFeatures returns a copy of c where every entry carries exactly the
// given features.
func (c *Caps) WithFeatures(names ...string) *Caps {
	res := c.Copy()
	if res == nil {
		return New()
	}
	for i := range res.entries {
		res.entries[i].features = NewFeatures(names...)
	}
	return res
}

// SetField sets key to value on every structure.
func (c *Caps) SetField(key string, value any) {
	for _, e := range c.entries {
		e.structure.Set(key, value)
	}
}

// RemoveField removes the keys from every structure.
func (c *Caps) RemoveField(keys ...string) {
	for _, e := range c.entries {
		e.structure.Remove(keys...)
	}
}

// Fixate returns the first entry of c with every field reduced to a single
// value.
func (c *Caps) Fixate() *Caps {
	if c.IsEmpty() {
		return New()
	}
	return FromStructure(c.entries[0].structure.Fixate(), c.entries[0].features)
}

func (c *Caps) String() string {
	if c.IsEmpty() {
		return "EMPTY"
	}
	parts := make([]string, len(c.entries))
	for i, e := range c.entries {
		s := e.structure.String()
		name, rest, _ := strings.Cut(s, ",")
		parts[i] = name + e.features.String()
		if rest != "" {
			parts[i] += "," + rest
		}
	}
	return strings.Join(parts, "; ")
}
