package rendering

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/fosdem/glupload/lib/encdec"
)

var (
	ErrContextClosed = errors.New("context is closed")
	ErrNoTexture     = errors.New("no such texture")
	ErrUnsupported   = errors.New("operation not supported by context")
)

type API int

const (
	APINone API = iota
	APIOpenGL3
	APIGLES2
)

func (a API) String() string {
	switch a {
	case APIOpenGL3:
		return "opengl3"
	case APIGLES2:
		return "gles2"
	}
	return "none"
}

type Platform int

const (
	PlatformNone Platform = iota
	PlatformGLX
	PlatformEGL
)

func (p Platform) String() string {
	switch p {
	case PlatformGLX:
		return "glx"
	case PlatformEGL:
		return "egl"
	}
	return "none"
}

// Context is a GPU context with thread affinity. Texture operations may only
// run on the owning thread, i.e. from inside a function passed to ThreadAdd.
type Context interface {
	Name() string
	API() API
	Platform() Platform
	// Handle identifies the native context for foreign producers.
	Handle() uintptr

	// CanShare reports whether objects of other may be used from this
	// context.
	CanShare(other Context) bool
	CheckFeature(feature string) bool

	// ThreadAdd runs fn on the owning thread and returns once it completed.
	// fn must not call ThreadAdd itself.
	ThreadAdd(fn func(Context))

	GenTexture(target TextureTarget, format TextureFormat, width, height int) (uint32, error)
	DeleteTexture(id uint32)
	TexSubImage(id uint32, target TextureTarget, format TextureFormat, width, height, stride int, data []byte) error
	ImportImage(id uint32, target TextureTarget, image uintptr) error

	Close()
}

// TextureUploadCounter counts the bytes sent to textures by all contexts.
var TextureUploadCounter atomic.Uint64

type shareGroup struct {
	id uint64
}

var lastShareGroup atomic.Uint64

func newShareGroup() *shareGroup {
	return &shareGroup{id: lastShareGroup.Add(1)}
}

type grouped interface {
	group() *shareGroup
}

func canShare(c grouped, other Context) bool {
	o, ok := other.(grouped)
	return ok && o.group() == c.group()
}

type TextureTarget int

const (
	TextureTarget2D TextureTarget = iota
	TextureTargetRectangle
	TextureTargetExternalOES
)

func TextureTargetFromString(s string) (TextureTarget, error) {
	switch s {
	case "2D":
		return TextureTarget2D, nil
	case "rectangle":
		return TextureTargetRectangle, nil
	case "external-oes":
		return TextureTargetExternalOES, nil
	}
	return TextureTarget2D, fmt.Errorf("unknown texture target %q", s)
}

func (t TextureTarget) String() string {
	switch t {
	case TextureTargetRectangle:
		return "rectangle"
	case TextureTargetExternalOES:
		return "external-oes"
	}
	return "2D"
}

// PoolOption is the buffer pool option requesting textures of this target.
func (t TextureTarget) PoolOption() string {
	switch t {
	case TextureTargetRectangle:
		return "GLTextureTargetRectangle"
	case TextureTargetExternalOES:
		return "GLTextureTargetExternalOES"
	}
	return "GLTextureTarget2D"
}

type TextureFormat int

const (
	TextureFormatRed TextureFormat = iota + 1
	TextureFormatRG
	TextureFormatRGB
	TextureFormatRGBA
)

func (f TextureFormat) BytesPerPixel() int {
	return int(f)
}

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRed:
		return "R8"
	case TextureFormatRG:
		return "RG8"
	case TextureFormatRGB:
		return "RGB8"
	case TextureFormatRGBA:
		return "RGBA8"
	}
	return "invalid"
}

// TextureFormatForPlane picks the texture format holding one plane of info
// without conversion.
func TextureFormatForPlane(info *encdec.VideoInfo, plane int) TextureFormat {
	return TextureFormat(info.Format.PixelStride(plane))
}
