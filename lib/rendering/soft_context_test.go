package rendering_test

import (
	"sync"
	"testing"

	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, name string, share *rendering.SoftContext) *rendering.SoftContext {
	t.Helper()
	c, err := rendering.NewSoftContext(name, share)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestShareGroups(t *testing.T) {
	a := newContext(t, "a", nil)
	b := newContext(t, "b", a)
	c := newContext(t, "c", nil)

	assert.True(t, a.CanShare(b))
	assert.True(t, b.CanShare(a))
	assert.False(t, a.CanShare(c))
	assert.False(t, a.CanShare(nil))
}

func TestThreadAddRunsSerially(t *testing.T) {
	ctx := newContext(t, "serial", nil)

	counter := 0
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx.ThreadAdd(func(rendering.Context) {
				counter++
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestThreadAddAfterClose(t *testing.T) {
	ctx, err := rendering.NewSoftContext("closed", nil)
	require.NoError(t, err)
	ctx.Close()
	ctx.Close()

	ran := false
	ctx.ThreadAdd(func(rendering.Context) { ran = true })
	assert.False(t, ran)
}

func TestTexSubImageHonoursStride(t *testing.T) {
	ctx := newContext(t, "upload", nil)

	var id uint32
	var genErr, uploadErr error
	ctx.ThreadAdd(func(c rendering.Context) {
		id, genErr = c.GenTexture(rendering.TextureTarget2D, rendering.TextureFormatRed, 2, 2)
		if genErr == nil {
			uploadErr = c.TexSubImage(id, rendering.TextureTarget2D, rendering.TextureFormatRed, 2, 2, 4, []byte{1, 2, 0, 0, 3, 4})
		}
	})
	require.NoError(t, genErr)
	require.NoError(t, uploadErr)

	tex, ok := ctx.Texture(id)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, tex.Data)

	ctx.ThreadAdd(func(c rendering.Context) {
		uploadErr = c.TexSubImage(id, rendering.TextureTarget2D, rendering.TextureFormatRed, 2, 2, 4, []byte{1, 2})
	})
	assert.Error(t, uploadErr)

	ctx.ThreadAdd(func(c rendering.Context) { c.DeleteTexture(id) })
	assert.Equal(t, 0, ctx.NumTextures())
}

func TestImportImage(t *testing.T) {
	ctx := newContext(t, "import", nil)
	ctx.ThreadAdd(func(c rendering.Context) {
		id, err := c.GenTexture(rendering.TextureTarget2D, rendering.TextureFormatRGBA, 4, 4)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, c.ImportImage(id, rendering.TextureTarget2D, 0xbeef))
		assert.Error(t, c.ImportImage(id, rendering.TextureTarget2D, 0))
		assert.ErrorIs(t, c.ImportImage(id+1, rendering.TextureTarget2D, 0xbeef), rendering.ErrNoTexture)
	})
}

func TestTextureFormatForPlane(t *testing.T) {
	nv12, err := encdec.NewVideoInfo(encdec.FormatNV12, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, rendering.TextureFormatRed, rendering.TextureFormatForPlane(nv12, 0))
	assert.Equal(t, rendering.TextureFormatRG, rendering.TextureFormatForPlane(nv12, 1))

	rgba, err := encdec.NewVideoInfo(encdec.FormatRGBA, 16, 16)
	require.NoError(t, err)
	assert.Equal(t, rendering.TextureFormatRGBA, rendering.TextureFormatForPlane(rgba, 0))
}

func TestTextureTargets(t *testing.T) {
	for _, name := range []string{"2D", "rectangle", "external-oes"} {
		target, err := rendering.TextureTargetFromString(name)
		require.NoError(t, err)
		assert.Equal(t, name, target.String())
	}
	_, err := rendering.TextureTargetFromString("cube")
	assert.Error(t, err)
	assert.Equal(t, "GLTextureTarget2D", rendering.TextureTarget2D.PoolOption())
}
