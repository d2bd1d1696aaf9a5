package upload

import (
	"fmt"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
)

type glMemoryMethod struct{}

// GLMemoryMethod passes buffers that already hold textures of a context
// the session can share with.
var GLMemoryMethod Method = glMemoryMethod{}

var glMemoryTemplate = videoCaps(caps.FeatureMemoryGL, encdec.GLFormatNames()...)

func (glMemoryMethod) Name() string {
	return "GLMemory"
}

func (glMemoryMethod) Flags() MethodFlags {
	return MethodFlagCanShareContext
}

func (glMemoryMethod) InputTemplateCaps() *caps.Caps {
	return glMemoryTemplate.Copy()
}

func (glMemoryMethod) New(u *Upload) MethodImpl {
	return &glMemoryUpload{upload: u}
}

func (glMemoryMethod) TransformCaps(ctx rendering.Context, direction Direction, c *caps.Caps) *caps.Caps {
	return c.WithFeatures(caps.FeatureMemoryGL)
}

type glMemoryUpload struct {
	upload *Upload
}

func (g *glMemoryUpload) Accept(buf *buffer.Buffer, in, out *caps.Caps) bool {
	if !hasFeature(out, caps.FeatureMemoryGL) {
		return false
	}
	if !hasFeature(in, caps.FeatureMemoryGL) && !hasFeature(in, caps.FeatureMemorySystem) {
		return false
	}
	if buf == nil {
		return true
	}
	if buf.NumMemories() != g.upload.inInfo.ExpectedMemories() {
		return false
	}
	for i := 0; i < buf.NumMemories(); i++ {
		if !buffer.IsGLMemory(buf.PeekMemory(i)) {
			return false
		}
	}
	return true
}

func (g *glMemoryUpload) ProposeAllocation(decide, query *buffer.AllocationQuery) {
	u := g.upload
	query.AddAllocationParam(buffer.AllocatorGLMemory, 0)

	if !query.NeedPool {
		return
	}
	for _, p := range query.Pools {
		if buffer.IsGLBufferPool(p.Pool) {
			return
		}
	}

	info, err := encdec.InfoFromCaps(query.Caps)
	if err != nil {
		u.logger.Warn(fmt.Sprintf("invalid caps specified: %s", err))
		return
	}

	pool := buffer.NewGLBufferPool(u.ctx)
	cfg := buffer.PoolConfig{
		Caps: query.Caps.Copy(),
		Size: info.Size,
	}
	cfg.AddOption(buffer.PoolOptionVideoMeta)
	cfg.AddOption(buffer.PoolOptionGLSyncMeta)
	if u.outCaps != nil {
		cfg.AddOption(textureTarget(u.outCaps, rendering.TextureTarget2D).PoolOption())
	}
	if err := pool.SetConfig(cfg); err != nil {
		u.logger.Warn(fmt.Sprintf("failed to set buffer pool config: %s", err))
		return
	}
	query.AddPool(pool, info.Size, 1, 0)
}

func (g *glMemoryUpload) Perform(buf *buffer.Buffer) (*buffer.Buffer, Return) {
	u := g.upload
	mems := make([]*buffer.GLMemory, buf.NumMemories())
	for i := range mems {
		mems[i] = buf.PeekMemory(i).(*buffer.GLMemory)
		if !u.ctx.CanShare(mems[i].Context) {
			return nil, ReturnUnsharedContext
		}
	}
	for _, m := range mems {
		if err := m.Transfer(); err != nil {
			u.logger.Warn(fmt.Sprintf("could not transfer texture: %s", err))
			return nil, ReturnError
		}
	}
	return buf.Ref(), ReturnDone
}

func (g *glMemoryUpload) Free() {}
