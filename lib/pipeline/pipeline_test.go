package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/pipeline"
	"github.com/fosdem/glupload/lib/upload"
)

func imageConfig(t *testing.T, memory string, share bool) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Name:    t.Name(),
		Context: &config.ContextCfg{Type: config.ContextSoftware, ShareWithPrimary: share},
		Source: &config.SourceCfg{
			SourceCfgStub: config.SourceCfgStub{Type: "image", Memory: memory, Framerate: 100},
			Cfg:           &config.ImgSourceCfg{Width: 4, Height: 4},
		},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.New(cfg)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestMemoryKindSelectsMethod(t *testing.T) {
	tests := []struct {
		memory string
		share  bool
		method string
	}{
		{config.MemorySystem, false, "Raw Data"},
		{config.MemoryTexture, true, "GLMemory"},
		{config.MemoryUploadMeta, false, "UploadMeta"},
	}
	for _, tt := range tests {
		t.Run(tt.memory, func(t *testing.T) {
			p := newPipeline(t, imageConfig(t, tt.memory, tt.share))

			require.NoError(t, p.UploadOne())
			require.NoError(t, p.UploadOne())

			state, method := p.Session().State()
			assert.Equal(t, upload.StateMethodSelected, state)
			assert.Equal(t, tt.method, method)

			snap := p.Stats.Snapshot()
			assert.EqualValues(t, 2, snap.Uploads)
			assert.EqualValues(t, 0, snap.Failures)
			assert.Equal(t, tt.method, snap.Method)
		})
	}
}

func TestNegotiatedOutputIsGLMemory(t *testing.T) {
	p := newPipeline(t, imageConfig(t, config.MemorySystem, false))

	in, out := p.Session().Caps()
	assert.Equal(t, "(memory:GLMemory)", out.Features(0).String())
	inFormat, _ := in.Structure(0).Get("format")
	outFormat, _ := out.Structure(0).Get("format")
	assert.Equal(t, inFormat, outFormat)
	assert.True(t, out.IsFixed())
}

func TestOutputFilterMismatch(t *testing.T) {
	cfg := imageConfig(t, config.MemorySystem, false)
	cfg.Output.Caps = "video/x-raw(memory:GLMemory), format=NV12"

	_, err := pipeline.New(cfg)
	assert.ErrorIs(t, err, pipeline.ErrNegotiation)
}

func TestRawFileSource(t *testing.T) {
	frames := config.FrameCfg{Format: "I420", Width: 4, Height: 4}
	info, err := frames.Info()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "frames.yuv")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*info.Size), 0o644))

	cfg := &config.Config{
		Context: &config.ContextCfg{Type: config.ContextSoftware},
		Source: &config.SourceCfg{
			SourceCfgStub: config.SourceCfgStub{Type: "raw"},
			Cfg:           &config.RawSourceCfg{FrameCfg: frames, Path: config.CfgPath(path)},
		},
	}
	require.NoError(t, cfg.Validate())
	p := newPipeline(t, cfg)

	for range 3 {
		require.NoError(t, p.UploadOne())
	}
	_, method := p.Session().State()
	assert.Equal(t, "Raw Data", method)
}

func TestRunStopsOnKill(t *testing.T) {
	p := newPipeline(t, imageConfig(t, config.MemorySystem, false))

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background())
	}()

	require.Eventually(t, func() bool {
		return p.Stats.Snapshot().Uploads > 2
	}, 2*time.Second, 10*time.Millisecond)
	p.Kill()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Kill")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	p := newPipeline(t, imageConfig(t, config.MemorySystem, false))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, p.Run(ctx))
}

func TestKillBeforeRun(t *testing.T) {
	p := newPipeline(t, imageConfig(t, config.MemorySystem, false))

	p.Kill()
	assert.NoError(t, p.Run(context.Background()))
	assert.EqualValues(t, 0, p.Stats.Snapshot().Uploads)
}

func TestApiIsCreatedWhenConfigured(t *testing.T) {
	cfg := imageConfig(t, config.MemorySystem, false)
	cfg.Api = &config.ApiCfg{Bind: "127.0.0.1:0"}
	p := newPipeline(t, cfg)

	require.NoError(t, p.UploadOne())
	_, method := p.Session().State()
	assert.Equal(t, "Raw Data", method)
}
