package caps_test

import (
	"testing"

	"github.com/fosdem/glupload/lib/caps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoundTrip(t *testing.T) {
	c, err := caps.Parse("video/x-raw(memory:GLMemory), format={ RGBA, BGRA }, width=[ 1, 4096 ], framerate=30/1")
	require.NoError(t, err)
	require.Equal(t, 1, c.Size())

	s := c.Structure(0)
	assert.Equal(t, caps.MediaTypeVideoRaw, s.Name)
	assert.True(t, c.Features(0).Contains(caps.FeatureMemoryGL))
	assert.False(t, c.Features(0).Contains(caps.FeatureMemorySystem))

	format, _ := s.Get("format")
	assert.Equal(t, caps.List{"RGBA", "BGRA"}, format)
	width, _ := s.Get("width")
	assert.Equal(t, caps.IntRange{Min: 1, Max: 4096}, width)
	rate, ok := s.GetFraction("framerate")
	assert.True(t, ok)
	assert.Equal(t, caps.Fraction{Num: 30, Den: 1}, rate)

	again, err := caps.Parse(c.String())
	require.NoError(t, err)
	assert.True(t, c.IsEqual(again))
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		"video/x-raw, format",
		"video/x-raw(memory:GLMemory, format=RGBA",
		"video/x-raw, width=[ 10, 1 ]",
		"video/x-raw, format={ RGBA",
	} {
		_, err := caps.Parse(in)
		assert.ErrorIs(t, err, caps.ErrParse, in)
	}
}

func TestSystemMemoryIsDefaultFeature(t *testing.T) {
	c := caps.MustParse("video/x-raw(memory:SystemMemory), format=RGBA")
	assert.Empty(t, c.Features(0))
	assert.True(t, c.Features(0).Contains(caps.FeatureMemorySystem))
	assert.True(t, c.IsEqual(caps.MustParse("video/x-raw, format=RGBA")))
}

func TestIsFixed(t *testing.T) {
	assert.True(t, caps.MustParse("video/x-raw, format=RGBA, width=320, height=240").IsFixed())
	assert.False(t, caps.MustParse("video/x-raw, format={ RGBA, I420 }").IsFixed())
	assert.False(t, caps.MustParse("video/x-raw, width=[ 1, 10 ]").IsFixed())
	assert.False(t, caps.MustParse("video/x-raw, format=RGBA; video/x-raw, format=I420").IsFixed())
	assert.False(t, caps.New().IsFixed())
}

func TestIntersect(t *testing.T) {
	a := caps.MustParse("video/x-raw(memory:GLMemory), format={ RGBA, I420, NV12 }, width=[ 1, 1920 ]; video/x-raw, format=RGBA")
	filter := caps.MustParse("video/x-raw(memory:GLMemory), format={ NV12, RGBA }, width=640, height=480")

	res := a.Intersect(filter)
	require.Equal(t, 1, res.Size())
	format, _ := res.Structure(0).Get("format")
	assert.Equal(t, caps.List{"NV12", "RGBA"}, format)
	width, _ := res.Structure(0).GetInt("width")
	assert.Equal(t, 640, width)
	height, _ := res.Structure(0).GetInt("height")
	assert.Equal(t, 480, height)

	none := a.Intersect(caps.MustParse("video/x-raw(memory:EGLImage), format=RGBA"))
	assert.True(t, none.IsEmpty())
	assert.Equal(t, "EMPTY", none.String())
}

func TestMergeSimplify(t *testing.T) {
	a := caps.MustParse("video/x-raw, format=RGBA")
	b := caps.MustParse("video/x-raw, format=RGBA; video/x-raw(memory:GLMemory), format=RGBA")

	merged := a.Merge(b)
	assert.Equal(t, 2, merged.Size())
	assert.Equal(t, 1, a.Size(), "merge must not modify its receiver")

	dup := caps.MustParse("video/x-raw, format=RGBA; video/x-raw, format=RGBA")
	assert.Equal(t, 1, dup.Simplify().Size())
}

func TestWithFeaturesAndFields(t *testing.T) {
	c := caps.MustParse("video/x-raw, format=I420, texture-target=2D; video/x-raw, format=NV12")
	gl := c.WithFeatures(caps.FeatureMemoryGL)
	gl.RemoveField("texture-target")
	gl.SetField("format", "RGBA")

	assert.True(t, gl.Features(1).Contains(caps.FeatureMemoryGL))
	assert.False(t, gl.Structure(0).Has("texture-target"))
	assert.True(t, c.Structure(0).Has("texture-target"), "original caps stay untouched")
	f, _ := gl.Structure(1).GetString("format")
	assert.Equal(t, "RGBA", f)
}

func TestFixate(t *testing.T) {
	c := caps.MustParse("video/x-raw(memory:GLMemory), format={ RGBA, BGRA }, width=[ 16, 64 ]; video/x-raw, format=I420")
	f := c.Fixate()
	require.True(t, f.IsFixed())
	assert.Equal(t, "video/x-raw(memory:GLMemory), format=RGBA, width=16", f.String())
}
