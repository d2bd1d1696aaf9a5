package upload

import (
	"fmt"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/rendering"
)

type uploadMetaMethod struct{}

// UploadMetaMethod hands textures of the session context to the producer,
// which fills them through its TextureUploadMeta.
var UploadMetaMethod Method = uploadMetaMethod{}

var uploadMetaTemplate = videoCaps(caps.FeatureMetaTextureUpload, "RGBA")

// Keys of the parameters proposed with the texture upload meta.
const (
	MetaParamContext       = "context"
	MetaParamContextHandle = "context.handle"
	MetaParamContextType   = "context.type"
	MetaParamContextAPIs   = "context.apis"
)

func (uploadMetaMethod) Name() string {
	return "UploadMeta"
}

func (uploadMetaMethod) Flags() MethodFlags {
	return MethodFlagCanShareContext
}

func (uploadMetaMethod) InputTemplateCaps() *caps.Caps {
	return uploadMetaTemplate.Copy()
}

func (uploadMetaMethod) New(u *Upload) MethodImpl {
	return &uploadMetaUpload{upload: u}
}

func (uploadMetaMethod) TransformCaps(ctx rendering.Context, direction Direction, c *caps.Caps) *caps.Caps {
	if direction == DirectionSink {
		return c.WithFeatures(caps.FeatureMemoryGL)
	}
	res := c.WithFeatures(caps.FeatureMetaTextureUpload)
	res.SetField("format", "RGBA")
	res.RemoveField("texture-target")
	return res
}

type uploadMetaUpload struct {
	upload *Upload
	meta   *buffer.TextureUploadMeta
}

func (m *uploadMetaUpload) Accept(buf *buffer.Buffer, in, out *caps.Caps) bool {
	if !hasFeature(in, caps.FeatureMetaTextureUpload) || !hasFeature(out, caps.FeatureMemoryGL) {
		return false
	}
	if buf == nil {
		return true
	}
	meta := buf.UploadMeta
	if meta == nil {
		return false
	}
	if meta.TextureType[0] != buffer.TextureTypeRGBA {
		m.upload.logger.Debug("upload meta only supports a single RGBA texture")
		return false
	}
	if meta.Orientation != buffer.OrientationXNormalYNormal {
		m.upload.logger.Debug(fmt.Sprintf("upload meta does not support texture orientation %d", meta.Orientation))
		return false
	}
	return true
}

func (m *uploadMetaUpload) ProposeAllocation(decide, query *buffer.AllocationQuery) {
	ctx := m.upload.ctx
	query.AddMeta(buffer.MetaAPITextureUpload, map[string]any{
		MetaParamContext:       ctx,
		MetaParamContextHandle: ctx.Handle(),
		MetaParamContextType:   ctx.Platform().String(),
		MetaParamContextAPIs:   ctx.API().String(),
	})
}

func (m *uploadMetaUpload) Perform(buf *buffer.Buffer) (*buffer.Buffer, Return) {
	u := m.upload
	m.meta = buf.UploadMeta
	if m.meta == nil {
		return nil, ReturnError
	}

	outbuf := buffer.New()
	ok := false
	err := rendering.ErrContextClosed
	u.ctx.ThreadAdd(func(ctx rendering.Context) {
		if err = buffer.SetupBuffer(ctx, rendering.TextureTarget2D, &u.inInfo, outbuf); err != nil {
			return
		}
		var ids [MaxPlanes]uint32
		n := min(outbuf.NumMemories(), MaxPlanes)
		for i := range n {
			ids[i] = outbuf.PeekMemory(i).(*buffer.GLMemory).TextureID()
		}
		u.logger.Debug(fmt.Sprintf("uploading with textures %v", ids[:n]))
		ok = m.meta.Upload(ids[:])
	})
	if err != nil || !ok {
		outbuf.Unref()
		if err != nil {
			u.logger.Warn(fmt.Sprintf("could not allocate textures: %s", err))
		} else {
			u.logger.Debug("producer failed to upload into the textures")
		}
		return nil, ReturnError
	}
	return outbuf, ReturnDone
}

// Free drops the meta. The textures belong to the buffers handed out.
func (m *uploadMetaUpload) Free() {
	m.meta = nil
}
