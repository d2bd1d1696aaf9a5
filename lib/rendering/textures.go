package rendering

import (
	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// GL_TEXTURE_EXTERNAL_OES is not part of the core profile bindings
const glTextureExternalOES = 0x8D65

func glTextureTarget(t TextureTarget) uint32 {
	switch t {
	case TextureTargetRectangle:
		return gl.TEXTURE_RECTANGLE
	case TextureTargetExternalOES:
		return glTextureExternalOES
	}
	return gl.TEXTURE_2D
}

func glFormat(f TextureFormat) (internal int32, format uint32) {
	switch f {
	case TextureFormatRed:
		return gl.R8, gl.RED
	case TextureFormatRG:
		return gl.RG8, gl.RG
	case TextureFormatRGB:
		return gl.RGB8, gl.RGB
	}
	return gl.RGBA8, gl.RGBA
}

// SetupTexture allocates texture storage for one plane. External textures
// get no storage, their content comes from an imported image.
func SetupTexture(target TextureTarget, format TextureFormat, width int, height int) uint32 {
	glTarget := glTextureTarget(target)

	var id uint32
	gl.GenTextures(1, &id)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(glTarget, id)
	gl.TexParameteri(glTarget, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(glTarget, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	if format == TextureFormatRGBA {
		borderColor := mgl32.Vec4{0, 0, 0, 0}
		gl.TexParameterfv(glTarget, gl.TEXTURE_BORDER_COLOR, &borderColor[0])
		gl.TexParameteri(glTarget, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
		gl.TexParameteri(glTarget, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	} else {
		// this is to compensate for floating-point errors on x==0/y==0
		gl.TexParameteri(glTarget, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(glTarget, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}

	if target == TextureTargetExternalOES {
		return id
	}

	internal, packing := glFormat(format)
	gl.TexImage2D(
		glTarget,
		0,
		internal,
		int32(width),
		int32(height),
		0,
		packing,
		gl.UNSIGNED_BYTE,
		gl.Ptr(nil),
	)
	return id
}

// SendTextureToGPU replaces the content of a texture with rows of data that
// are stride bytes apart.
func SendTextureToGPU(texID uint32, target TextureTarget, format TextureFormat, w int, h int, stride int, data []byte) {
	glTarget := glTextureTarget(target)
	_, packing := glFormat(format)

	gl.BindTexture(glTarget, texID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(stride/format.BytesPerPixel()))
	gl.TexSubImage2D(
		glTarget,
		0, 0, 0,
		int32(w), int32(h),
		packing, gl.UNSIGNED_BYTE, gl.Ptr(data),
	)
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	TextureUploadCounter.Add(uint64(w * h * format.BytesPerPixel()))
}
