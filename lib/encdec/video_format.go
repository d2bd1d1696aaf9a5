package encdec

import (
	"errors"
	"fmt"
)

var ErrUnknownFormat = errors.New("unknown video format")

// MaxPlanes is the largest number of planes a single view can have.
const MaxPlanes = 4

type VideoFormat int

const (
	FormatUnknown VideoFormat = iota
	FormatRGBA
	FormatBGRA
	FormatRGBx
	FormatBGRx
	FormatxRGB
	FormatxBGR
	FormatARGB
	FormatABGR
	FormatRGB
	FormatBGR
	FormatGRAY8
	FormatYUY2
	FormatUYVY
	FormatI420
	FormatYV12
	FormatY42B
	FormatY444
	FormatNV12
	FormatNV21
)

type planeLayout struct {
	pixelStride int
	wSub        uint
	hSub        uint
}

type formatDesc struct {
	name   string
	planes []planeLayout
}

var packed4 = []planeLayout{{pixelStride: 4}}

var formats = map[VideoFormat]formatDesc{
	FormatRGBA:  {"RGBA", packed4},
	FormatBGRA:  {"BGRA", packed4},
	FormatRGBx:  {"RGBx", packed4},
	FormatBGRx:  {"BGRx", packed4},
	FormatxRGB:  {"xRGB", packed4},
	FormatxBGR:  {"xBGR", packed4},
	FormatARGB:  {"ARGB", packed4},
	FormatABGR:  {"ABGR", packed4},
	FormatRGB:   {"RGB", []planeLayout{{pixelStride: 3}}},
	FormatBGR:   {"BGR", []planeLayout{{pixelStride: 3}}},
	FormatGRAY8: {"GRAY8", []planeLayout{{pixelStride: 1}}},
	FormatYUY2:  {"YUY2", []planeLayout{{pixelStride: 2}}},
	FormatUYVY:  {"UYVY", []planeLayout{{pixelStride: 2}}},
	FormatI420:  {"I420", []planeLayout{{1, 0, 0}, {1, 1, 1}, {1, 1, 1}}},
	FormatYV12:  {"YV12", []planeLayout{{1, 0, 0}, {1, 1, 1}, {1, 1, 1}}},
	FormatY42B:  {"Y42B", []planeLayout{{1, 0, 0}, {1, 1, 0}, {1, 1, 0}}},
	FormatY444:  {"Y444", []planeLayout{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}}},
	FormatNV12:  {"NV12", []planeLayout{{1, 0, 0}, {2, 1, 1}}},
	FormatNV21:  {"NV21", []planeLayout{{1, 0, 0}, {2, 1, 1}}},
}

// GLFormats lists the formats GPU textures can be created from, in the
// order they are advertised.
var GLFormats = []VideoFormat{
	FormatRGBA, FormatBGRA, FormatRGBx, FormatBGRx, FormatxRGB, FormatxBGR,
	FormatARGB, FormatABGR, FormatRGB, FormatBGR, FormatGRAY8, FormatYUY2,
	FormatUYVY, FormatI420, FormatYV12, FormatY42B, FormatY444, FormatNV12,
	FormatNV21,
}

func ParseVideoFormat(s string) (VideoFormat, error) {
	for f, d := range formats {
		if d.name == s {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %s", ErrUnknownFormat, s)
}

func (f VideoFormat) String() string {
	d, ok := formats[f]
	if !ok {
		return "unknown"
	}
	return d.name
}

func (f VideoFormat) NumPlanes() int {
	return len(formats[f].planes)
}

// PixelStride is the number of bytes between two horizontally adjacent
// samples of the given plane.
func (f VideoFormat) PixelStride(plane int) int {
	return formats[f].planes[plane].pixelStride
}

// IsYUV reports whether the format carries luma/chroma planes or samples.
func (f VideoFormat) IsYUV() bool {
	switch f {
	case FormatYUY2, FormatUYVY, FormatI420, FormatYV12, FormatY42B, FormatY444, FormatNV12, FormatNV21:
		return true
	}
	return false
}

// GLFormatNames returns GLFormats as caps list values.
func GLFormatNames() []string {
	names := make([]string, len(GLFormats))
	for i, f := range GLFormats {
		names[i] = f.String()
	}
	return names
}
