package upload_test

import (
	"testing"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/rendering"
	"github.com/fosdem/glupload/lib/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputTemplateCaps(t *testing.T) {
	tmpl := upload.InputTemplateCaps()
	require.Equal(t, 8, tmpl.Size())

	var features []string
	for i := 0; i < tmpl.Size(); i++ {
		features = append(features, tmpl.Features(i).String())
	}
	assert.Equal(t, []string{
		"(memory:GLMemory)",
		"(memory:EGLImage)",
		"(meta:TextureUploadMeta)",
		"",
		"(memory:GLMemory, meta:OverlayComposition)",
		"(memory:EGLImage, meta:OverlayComposition)",
		"(meta:OverlayComposition, meta:TextureUploadMeta)",
		"(meta:OverlayComposition)",
	}, features)

	tmpl.SetField("format", "NV12")
	assert.NotEqual(t, tmpl.String(), upload.InputTemplateCaps().String(), "template is handed out as a copy")
}

func TestTransformCapsToOutput(t *testing.T) {
	in := caps.MustParse("video/x-raw, format=I420, width=4, height=4")
	res := upload.TransformCaps(nil, upload.DirectionSink, in, nil)

	assert.True(t, res.IsEqual(caps.MustParse(
		"video/x-raw(memory:GLMemory), format=I420, width=4, height=4; "+
			"video/x-raw(memory:GLMemory, meta:OverlayComposition), format=I420, width=4, height=4")), res.String())
}

func TestTransformCapsToInput(t *testing.T) {
	out := caps.MustParse("video/x-raw(memory:GLMemory), format=NV12, width=4, height=4, texture-target=2D")
	res := upload.TransformCaps(nil, upload.DirectionSrc, out, nil)

	expected := caps.MustParse(
		"video/x-raw(memory:GLMemory), format=NV12, width=4, height=4, texture-target=2D; " +
			"video/x-raw(memory:EGLImage), format=RGBA, width=4, height=4; " +
			"video/x-raw(meta:TextureUploadMeta), format=RGBA, width=4, height=4; " +
			"video/x-raw, format=NV12, width=4, height=4")
	assert.True(t, res.IsEqual(upload.AddOverlayCaps(expected)), res.String())
}

func TestTransformCapsFilter(t *testing.T) {
	out := caps.MustParse("video/x-raw(memory:GLMemory), format=NV12, width=4, height=4")
	filter := caps.MustParse("video/x-raw, format={ NV12, RGBA }, width=[ 1, 100 ]; video/x-raw(meta:TextureUploadMeta), format=RGBA")

	res := upload.TransformCaps(nil, upload.DirectionSrc, out, filter)
	require.Equal(t, 2, res.Size())
	assert.Equal(t, "video/x-raw, format=NV12, width=4, height=4", res.Structure(0).String())
	assert.Equal(t, "(meta:TextureUploadMeta)", res.Features(1).String())
}

func TestProposeAllocation(t *testing.T) {
	ctx := softContext(t)
	ctx.SetFeatures("EGL_KHR_image_base")
	u := defaultSession(t, ctx,
		"video/x-raw, format=RGBA, width=4, height=4",
		"video/x-raw(memory:GLMemory), format=RGBA, width=4, height=4, texture-target=rectangle")

	query := buffer.NewAllocationQuery(caps.MustParse("video/x-raw, format=RGBA, width=4, height=4"), true)
	u.ProposeAllocation(nil, query)

	assert.True(t, query.HasAllocator(buffer.AllocatorGLMemory))
	assert.True(t, query.HasAllocator(buffer.AllocatorEGLImage))

	require.Len(t, query.Pools, 1)
	pool, ok := query.Pools[0].Pool.(*buffer.GLBufferPool)
	require.True(t, ok)
	assert.Same(t, ctx, pool.Context())
	assert.Equal(t, 64, query.Pools[0].Size)
	assert.Equal(t, rendering.TextureTargetRectangle, pool.TextureTarget())
	assert.True(t, pool.Config().HasOption(buffer.PoolOptionGLSyncMeta))

	_, ok = query.Meta(buffer.MetaAPIVideo)
	assert.True(t, ok)
	meta, ok := query.Meta(buffer.MetaAPITextureUpload)
	require.True(t, ok)
	assert.Equal(t, ctx.Handle(), meta.Params[upload.MetaParamContextHandle])
	assert.Equal(t, rendering.PlatformNone.String(), meta.Params[upload.MetaParamContextType])

	u.ProposeAllocation(nil, query)
	assert.Len(t, query.Pools, 1, "an existing GL pool is kept")
}

func TestProposeAllocationWithoutEGL(t *testing.T) {
	ctx := softContext(t)
	u := upload.New(ctx)
	defer u.Close()

	query := buffer.NewAllocationQuery(caps.MustParse("video/x-raw, format=RGBA"), true)
	u.ProposeAllocation(nil, query)

	assert.True(t, query.HasAllocator(buffer.AllocatorGLMemory))
	assert.False(t, query.HasAllocator(buffer.AllocatorEGLImage))
	assert.Empty(t, query.Pools, "no pool without a size")
}
