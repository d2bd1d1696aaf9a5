package upload

import (
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/rendering"
)

// TransformCaps returns the formats reachable from c through any method of
// the default registry. See Registry.TransformCaps.
func TransformCaps(ctx rendering.Context, direction Direction, c, filter *caps.Caps) *caps.Caps {
	return DefaultRegistry().TransformCaps(ctx, direction, c, filter)
}

// TransformCaps unions what every method produces for c, adds the overlay
// composition variants and, when filter is given, keeps only what filter
// accepts, in the order of filter.
func (r *Registry) TransformCaps(ctx rendering.Context, direction Direction, c, filter *caps.Caps) *caps.Caps {
	res := caps.New()
	for _, m := range r.methods {
		if t := m.TransformCaps(ctx, direction, c); t != nil {
			res = res.Merge(t)
		}
	}
	res = AddOverlayCaps(res)
	if filter != nil {
		return res.Intersect(filter)
	}
	return res
}
