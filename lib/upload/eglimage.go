package upload

import (
	"fmt"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/rendering"
)

const featureEGLImageBase = "EGL_KHR_image_base"

type eglImageMethod struct{}

// EGLImageMethod binds platform images to fresh textures of the session
// context.
var EGLImageMethod Method = eglImageMethod{}

var eglImageTemplate = videoCaps(caps.FeatureMemoryEGLImage, "RGBA")

func (eglImageMethod) Name() string {
	return "EGLImage"
}

func (eglImageMethod) Flags() MethodFlags {
	return 0
}

func (eglImageMethod) InputTemplateCaps() *caps.Caps {
	return eglImageTemplate.Copy()
}

func (eglImageMethod) New(u *Upload) MethodImpl {
	return &eglImageUpload{upload: u}
}

func (eglImageMethod) TransformCaps(ctx rendering.Context, direction Direction, c *caps.Caps) *caps.Caps {
	if direction == DirectionSink {
		return c.WithFeatures(caps.FeatureMemoryGL)
	}
	res := c.WithFeatures(caps.FeatureMemoryEGLImage)
	res.SetField("format", "RGBA")
	res.RemoveField("texture-target")
	return res
}

type eglImageUpload struct {
	upload *Upload
}

func (e *eglImageUpload) Accept(buf *buffer.Buffer, in, out *caps.Caps) bool {
	if !hasFeature(in, caps.FeatureMemoryEGLImage) || !hasFeature(out, caps.FeatureMemoryGL) {
		return false
	}
	if buf == nil {
		return true
	}
	if buf.NumMemories() != e.upload.inInfo.ExpectedMemories() {
		return false
	}
	for i := 0; i < buf.NumMemories(); i++ {
		if !buffer.IsEGLImageMemory(buf.PeekMemory(i)) {
			return false
		}
	}
	return true
}

func (e *eglImageUpload) ProposeAllocation(decide, query *buffer.AllocationQuery) {
	if e.upload.ctx.CheckFeature(featureEGLImageBase) {
		query.AddAllocationParam(buffer.AllocatorEGLImage, 0)
	}
}

func (e *eglImageUpload) Perform(buf *buffer.Buffer) (*buffer.Buffer, Return) {
	u := e.upload
	outbuf := buffer.New()
	err := rendering.ErrContextClosed
	u.ctx.ThreadAdd(func(ctx rendering.Context) {
		if err = buffer.SetupBuffer(ctx, rendering.TextureTarget2D, &u.outInfo, outbuf); err != nil {
			return
		}
		if outbuf.NumMemories() < buf.NumMemories() {
			err = fmt.Errorf("output holds %d textures for %d images", outbuf.NumMemories(), buf.NumMemories())
			return
		}
		for i := 0; i < buf.NumMemories(); i++ {
			img := buf.PeekMemory(i).(*buffer.EGLImageMemory)
			tex := outbuf.PeekMemory(i).(*buffer.GLMemory)
			if err = ctx.ImportImage(tex.TextureID(), tex.Target, img.Image); err != nil {
				return
			}
		}
	})
	if err != nil {
		outbuf.Unref()
		u.logger.Warn(fmt.Sprintf("could not import images: %s", err))
		return nil, ReturnError
	}
	// the textures alias the images, which must outlive them
	outbuf.AddParent(buf)
	return outbuf, ReturnDone
}

func (e *eglImageUpload) Free() {}
