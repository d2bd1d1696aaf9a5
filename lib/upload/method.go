package upload

import (
	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
)

// MaxPlanes is the number of textures one upload can produce: every plane
// of two views.
const MaxPlanes = encdec.MaxPlanes * 2

// Direction tells which side of the upload a set of caps describes.
type Direction int

const (
	// DirectionSink caps describe the input; transforming them yields
	// output caps.
	DirectionSink Direction = iota
	// DirectionSrc caps describe the output; transforming them yields
	// input caps.
	DirectionSrc
)

func (d Direction) String() string {
	if d == DirectionSrc {
		return "src"
	}
	return "sink"
}

type Return int

const (
	ReturnDone Return = iota
	ReturnError
	// ReturnUnsharedContext means the buffer lives in a context that
	// cannot share resources with the upload context.
	ReturnUnsharedContext
	// ReturnReconfigure asks for the method's state to be dropped and the
	// next method to be tried.
	ReturnReconfigure
)

func (r Return) String() string {
	switch r {
	case ReturnDone:
		return "done"
	case ReturnUnsharedContext:
		return "unshared-context"
	case ReturnReconfigure:
		return "reconfigure"
	}
	return "error"
}

type MethodFlags uint32

const (
	// MethodFlagCanShareContext methods may try to use resources of
	// another context.
	MethodFlagCanShareContext MethodFlags = 1 << iota
	// MethodFlagContextFallback marks the method used when a buffer's
	// context cannot be shared with. It must not need context sharing.
	MethodFlagContextFallback
)

// Method describes one upload strategy. Implementations are stateless;
// the per-session state lives in the MethodImpl returned by New.
type Method interface {
	Name() string
	Flags() MethodFlags
	// InputTemplateCaps lists every input format the method can handle.
	InputTemplateCaps() *caps.Caps
	New(u *Upload) MethodImpl
	// TransformCaps maps c to the formats the method can produce on the
	// other side of direction. It must not have side effects.
	TransformCaps(ctx rendering.Context, direction Direction, c *caps.Caps) *caps.Caps
}

// MethodImpl is the state of one method within an upload session.
type MethodImpl interface {
	// Accept reports whether the method can upload buf from in to out. buf
	// may be nil to check the formats only.
	Accept(buf *buffer.Buffer, in, out *caps.Caps) bool
	ProposeAllocation(decide, query *buffer.AllocationQuery)
	// Perform uploads buf. The returned buffer is only valid with
	// ReturnDone.
	Perform(buf *buffer.Buffer) (*buffer.Buffer, Return)
	// Free releases everything the state holds. It is safe to call on a
	// state that never performed an upload.
	Free()
}

const maxInt = int(^uint32(0) >> 1)

// videoCaps builds the template of raw video in the given formats, carried
// in memory with the given feature.
func videoCaps(feature string, formats ...string) *caps.Caps {
	s := caps.NewStructure(caps.MediaTypeVideoRaw,
		"format", formats,
		"width", caps.IntRange{Min: 1, Max: maxInt},
		"height", caps.IntRange{Min: 1, Max: maxInt},
	)
	var features caps.Features
	if feature != "" {
		features = caps.NewFeatures(feature)
	}
	return caps.FromStructure(s, features)
}

// textureTarget reads the texture-target field of c.
func textureTarget(c *caps.Caps, def rendering.TextureTarget) rendering.TextureTarget {
	if c.IsEmpty() {
		return def
	}
	name, ok := c.Structure(0).GetString("texture-target")
	if !ok {
		return def
	}
	target, err := rendering.TextureTargetFromString(name)
	if err != nil {
		return def
	}
	return target
}

func hasFeature(c *caps.Caps, feature string) bool {
	return !c.IsEmpty() && c.Features(0).Contains(feature)
}
