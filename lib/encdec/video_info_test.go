package encdec_test

import (
	"testing"

	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestI420Layout(t *testing.T) {
	info, err := encdec.NewVideoInfo(encdec.FormatI420, 320, 240)
	require.NoError(t, err)

	assert.Equal(t, 3, info.NumPlanes())
	assert.Equal(t, [encdec.MaxPlanes]int{320, 160, 160, 0}, info.Stride)
	assert.Equal(t, [encdec.MaxPlanes]int{0, 76800, 96000, 0}, info.Offset)
	assert.Equal(t, 115200, info.Size)
}

func TestOddSizesRoundUp(t *testing.T) {
	info, err := encdec.NewVideoInfo(encdec.FormatNV12, 33, 17)
	require.NoError(t, err)

	assert.Equal(t, 36, info.Stride[0])
	assert.Equal(t, 9, info.PlaneHeight(1))
	assert.Equal(t, 36, info.Stride[1])
	assert.Equal(t, 36*17+36*9, info.Size)
}

func TestInfoFromCaps(t *testing.T) {
	c := caps.MustParse("video/x-raw, format=NV12, width=64, height=32, views=2, multiview-mode=separated, framerate=25/1")
	info, err := encdec.InfoFromCaps(c)
	require.NoError(t, err)

	assert.Equal(t, encdec.FormatNV12, info.Format)
	assert.Equal(t, 2, info.Views)
	assert.Equal(t, encdec.MultiviewSeparated, info.MultiviewMode)
	assert.Equal(t, 4, info.ExpectedMemories())
	assert.Equal(t, caps.Fraction{Num: 25, Den: 1}, info.Framerate)

	back, err := encdec.InfoFromCaps(info.Caps())
	require.NoError(t, err)
	assert.Equal(t, info, back)
}

func TestInfoFromCapsErrors(t *testing.T) {
	_, err := encdec.InfoFromCaps(caps.MustParse("video/x-raw, format=P010, width=4, height=4"))
	assert.ErrorIs(t, err, encdec.ErrUnknownFormat)

	_, err = encdec.InfoFromCaps(caps.MustParse("video/x-raw, format={ RGBA, BGRA }, width=4, height=4"))
	assert.ErrorIs(t, err, encdec.ErrInvalidInfo)

	_, err = encdec.InfoFromCaps(caps.MustParse("video/x-raw, format=RGBA"))
	assert.ErrorIs(t, err, encdec.ErrInvalidInfo)

	_, err = encdec.InfoFromCaps(caps.New())
	assert.ErrorIs(t, err, encdec.ErrInvalidInfo)
}

func TestMonoViewsDoNotMultiplyMemories(t *testing.T) {
	info, err := encdec.InfoFromCaps(caps.MustParse("video/x-raw, format=I420, width=16, height=16, views=2, multiview-mode=side-by-side"))
	require.NoError(t, err)
	assert.Equal(t, 3, info.ExpectedMemories())
}
