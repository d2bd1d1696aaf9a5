package buffer

import (
	"unsafe"

	gopointer "github.com/mattn/go-pointer"
)

type TextureOrientation int

const (
	OrientationXNormalYNormal TextureOrientation = iota
	OrientationXNormalYFlip
	OrientationXFlipYNormal
	OrientationXFlipYFlip
)

type TextureType int

const (
	TextureTypeNone TextureType = iota
	TextureTypeLuminance
	TextureTypeLuminanceAlpha
	TextureTypeRGB16
	TextureTypeRGB
	TextureTypeRGBA
	TextureTypeR
	TextureTypeRG
)

// UploadFunc fills the given textures with the content of a buffer. It runs
// on the thread of the context owning the textures.
type UploadFunc func(meta *TextureUploadMeta, textureIDs []uint32) bool

// TextureUploadMeta lets a producer upload its frames into textures handed
// out by the consumer.
type TextureUploadMeta struct {
	Orientation TextureOrientation
	TextureType [4]TextureType
	NumTextures int

	upload UploadFunc
	user   unsafe.Pointer
}

// AddTextureUploadMeta attaches an upload meta to buf. user is kept in a
// handle table so that producers on the C side of a binding can pass it
// around as a plain pointer; it is released together with buf.
func AddTextureUploadMeta(buf *Buffer, orientation TextureOrientation, types []TextureType, upload UploadFunc, user any) *TextureUploadMeta {
	m := &TextureUploadMeta{
		Orientation: orientation,
		NumTextures: min(len(types), 4),
		upload:      upload,
	}
	copy(m.TextureType[:], types)
	if user != nil {
		m.user = gopointer.Save(user)
	}
	buf.UploadMeta = m
	return m
}

// UserHandle is the handle of the producer's user data.
func (m *TextureUploadMeta) UserHandle() unsafe.Pointer {
	return m.user
}

func (m *TextureUploadMeta) UserData() any {
	if m.user == nil {
		return nil
	}
	return gopointer.Restore(m.user)
}

// Upload runs the producer's upload function.
func (m *TextureUploadMeta) Upload(textureIDs []uint32) bool {
	if m.upload == nil {
		return false
	}
	return m.upload(m, textureIDs)
}

func (m *TextureUploadMeta) release() {
	if m.user != nil {
		gopointer.Unref(m.user)
		m.user = nil
	}
}
