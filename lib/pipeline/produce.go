package pipeline

import (
	"fmt"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
)

// producer hands source frames over in the memory kind the configuration
// asks for, the way an upstream element would.
type producer struct {
	memory  string
	info    encdec.VideoInfo
	context rendering.Context
	// consumer is the context proposed with the texture upload meta
	consumer rendering.Context
}

func (p *producer) inputCaps() *caps.Caps {
	return InputCaps(&p.info, p.memory)
}

// InputCaps are the caps of frames of info handed over in the given memory
// kind.
func InputCaps(info *encdec.VideoInfo, memory string) *caps.Caps {
	c := info.Caps()
	switch memory {
	case config.MemoryTexture:
		return c.WithFeatures(caps.FeatureMemoryGL)
	case config.MemoryUploadMeta:
		return c.WithFeatures(caps.FeatureMetaTextureUpload)
	}
	return c
}

// produce returns a new buffer holding frame. frame stays owned by the
// caller.
func (p *producer) produce(frame *buffer.Buffer) (*buffer.Buffer, error) {
	switch p.memory {
	case config.MemoryTexture:
		return p.produceTextures(frame)
	case config.MemoryUploadMeta:
		return p.produceUploadMeta(frame)
	}
	return frame.Ref(), nil
}

// produceTextures uploads the frame into textures of the producer context.
func (p *producer) produceTextures(frame *buffer.Buffer) (*buffer.Buffer, error) {
	mapped, err := buffer.MapVideoFrame(&p.info, frame)
	if err != nil {
		return nil, err
	}
	defer mapped.Unmap()

	buf := buffer.New()
	for _, m := range buffer.SetupWrapped(p.context, rendering.TextureTarget2D, &mapped.Info, mapped.Data, nil) {
		buf.AppendMemory(m)
	}
	if err := buffer.TransferAll(buf); err != nil {
		buf.Unref()
		return nil, fmt.Errorf("could not fill producer textures: %w", err)
	}
	return buf, nil
}

// metaUpload is what the upload callback needs to fill a texture.
type metaUpload struct {
	frame    *buffer.VideoFrame
	consumer rendering.Context
}

// produceUploadMeta lets the consumer pick the texture and fills it from
// the upload callback, which runs on the consumer's context thread.
func (p *producer) produceUploadMeta(frame *buffer.Buffer) (*buffer.Buffer, error) {
	if p.consumer == nil {
		return nil, fmt.Errorf("no context was proposed for the upload meta")
	}
	mapped, err := buffer.MapVideoFrame(&p.info, frame)
	if err != nil {
		return nil, err
	}
	buf := buffer.New()
	// keeps the mapping alive for as long as the meta can be used
	buf.AddParent(mapped.Buffer())
	mapped.Unmap()

	buffer.AddTextureUploadMeta(buf, buffer.OrientationXNormalYNormal,
		[]buffer.TextureType{buffer.TextureTypeRGBA}, uploadFromMeta, &metaUpload{frame: mapped, consumer: p.consumer})
	return buf, nil
}

func uploadFromMeta(meta *buffer.TextureUploadMeta, textureIDs []uint32) bool {
	up, ok := meta.UserData().(*metaUpload)
	if !ok || len(textureIDs) == 0 {
		return false
	}
	info := &up.frame.Info
	err := up.consumer.TexSubImage(textureIDs[0], rendering.TextureTarget2D, rendering.TextureFormatRGBA,
		info.Width, info.Height, info.Stride[0], up.frame.Data[0])
	return err == nil
}
