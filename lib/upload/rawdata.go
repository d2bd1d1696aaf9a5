package upload

import (
	"fmt"
	"sync/atomic"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
)

type rawDataMethod struct{}

// RawDataMethod wraps mapped host memory into textures that are filled
// when first transferred. It works with any context and is the fallback
// for buffers from contexts that cannot be shared with.
var RawDataMethod Method = rawDataMethod{}

var rawDataTemplate = videoCaps("", encdec.GLFormatNames()...)

func (rawDataMethod) Name() string {
	return "Raw Data"
}

func (rawDataMethod) Flags() MethodFlags {
	return MethodFlagContextFallback
}

func (rawDataMethod) InputTemplateCaps() *caps.Caps {
	return rawDataTemplate.Copy()
}

func (rawDataMethod) New(u *Upload) MethodImpl {
	return &rawDataUpload{upload: u}
}

func (rawDataMethod) TransformCaps(ctx rendering.Context, direction Direction, c *caps.Caps) *caps.Caps {
	if direction == DirectionSink {
		return c.WithFeatures(caps.FeatureMemoryGL)
	}
	res := c.WithFeatures()
	res.RemoveField("texture-target")
	return res
}

// rawFrame is a mapped input frame shared by the memories wrapping its
// planes. It is unmapped when the last of them is freed.
type rawFrame struct {
	refs  atomic.Int32
	frame *buffer.VideoFrame
}

func (f *rawFrame) ref() {
	f.refs.Add(1)
}

func (f *rawFrame) unref() {
	if f.refs.Add(-1) == 0 {
		f.frame.Unmap()
	}
}

type rawDataUpload struct {
	upload *Upload
	frame  *rawFrame
}

func (r *rawDataUpload) Accept(buf *buffer.Buffer, in, out *caps.Caps) bool {
	if !hasFeature(out, caps.FeatureMemoryGL) {
		return false
	}
	if buf == nil {
		return true
	}
	if r.frame != nil {
		r.frame.unref()
		r.frame = nil
	}

	u := r.upload
	frame, err := buffer.MapVideoFrame(&u.inInfo, buf)
	if err != nil {
		u.logger.Debug(fmt.Sprintf("could not map the buffer: %s", err))
		return false
	}
	// the wrapped planes are laid out by the strides the buffer carries
	u.inInfo = frame.Info
	u.inInfo.RecalculateOffsets()

	r.frame = &rawFrame{frame: frame}
	r.frame.ref()
	return true
}

func (r *rawDataUpload) ProposeAllocation(decide, query *buffer.AllocationQuery) {
	query.AddMeta(buffer.MetaAPIVideo, nil)
}

func (r *rawDataUpload) Perform(buf *buffer.Buffer) (*buffer.Buffer, Return) {
	u := r.upload
	if r.frame == nil {
		return nil, ReturnError
	}

	target := textureTarget(u.outCaps, rendering.TextureTarget2D)
	frame := r.frame
	outbuf := buffer.New()
	for _, m := range buffer.SetupWrapped(u.ctx, target, &u.inInfo, frame.frame.Data, frame.unref) {
		frame.ref()
		outbuf.AppendMemory(m)
		u.metrics.WrappedBytes.Add(float64(len(m.Wrapped())))
	}

	frame.unref()
	r.frame = nil
	return outbuf, ReturnDone
}

func (r *rawDataUpload) Free() {
	if r.frame != nil {
		r.frame.unref()
		r.frame = nil
	}
}
