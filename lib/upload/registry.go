package upload

import (
	"slices"
	"sync"

	"github.com/fosdem/glupload/lib/caps"
)

// Registry is an ordered, immutable list of upload methods. Sessions try
// the methods in registry order.
type Registry struct {
	methods  []Method
	template *caps.Caps
	fallback int
}

func NewRegistry(methods ...Method) *Registry {
	r := &Registry{
		methods:  slices.Clone(methods),
		fallback: -1,
	}
	tmpl := caps.New()
	for i, m := range r.methods {
		tmpl = tmpl.Merge(m.InputTemplateCaps())
		if r.fallback < 0 && m.Flags()&MethodFlagContextFallback != 0 {
			r.fallback = i
		}
	}
	r.template = AddOverlayCaps(tmpl.Simplify())
	return r
}

// DefaultRegistry holds every built-in method, cheapest first.
var DefaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(GLMemoryMethod, EGLImageMethod, UploadMetaMethod, RawDataMethod)
})

// InputTemplateCaps is the union of the input formats of the default
// registry.
func InputTemplateCaps() *caps.Caps {
	return DefaultRegistry().InputTemplateCaps()
}

func (r *Registry) InputTemplateCaps() *caps.Caps {
	return r.template.Copy()
}

func (r *Registry) Len() int {
	return len(r.methods)
}

func (r *Registry) Method(i int) Method {
	return r.methods[i]
}

func (r *Registry) Methods() []Method {
	return slices.Clone(r.methods)
}

// Fallback returns the method used for buffers from contexts that cannot
// be shared with.
func (r *Registry) Fallback() (Method, int, bool) {
	if r.fallback < 0 {
		return nil, -1, false
	}
	return r.methods[r.fallback], r.fallback, true
}

// AddOverlayCaps returns c followed by a copy of every entry that also
// carries the overlay composition meta.
func AddOverlayCaps(c *caps.Caps) *caps.Caps {
	overlay := caps.New()
	for i := 0; i < c.Size(); i++ {
		features := c.Features(i)
		if features.Contains(caps.FeatureMetaOverlay) {
			continue
		}
		names := append(slices.Clone(features), caps.FeatureMetaOverlay)
		overlay.Append(c.Structure(i).Copy(), caps.NewFeatures(names...))
	}
	return c.Merge(overlay)
}
