package rawsource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFile(t *testing.T, data []byte) config.CfgPath {
	t.Helper()
	path := filepath.Join(t.TempDir(), "frames.raw")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return config.CfgPath(path)
}

func TestLoopsOverFrames(t *testing.T) {
	// two GRAY8 4x2 frames and a partial third
	data := []byte{
		0, 0, 0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1, 1, 1,
		2, 2,
	}
	s, err := New("raw", &config.RawSourceCfg{
		FrameCfg: config.FrameCfg{Format: "GRAY8", Width: 4, Height: 2},
		Path:     rawFile(t, data),
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	var firsts []byte
	for range 3 {
		frame := s.Frame()
		require.NotNil(t, frame)
		mem := frame.PeekMemory(0).(*buffer.SystemMemory)
		assert.Len(t, mem.Data, 8)
		firsts = append(firsts, mem.Data[0])
		frame.Unref()
	}
	assert.Equal(t, []byte{0, 1, 0}, firsts)
	require.NoError(t, s.Close())
	assert.Nil(t, s.Frame())
}

func TestViewsShareOneFrame(t *testing.T) {
	s, err := New("raw", &config.RawSourceCfg{
		FrameCfg: config.FrameCfg{Format: "GRAY8", Width: 4, Height: 2, Views: 2, MultiviewMode: "separated"},
		Path:     rawFile(t, make([]byte, 16)),
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Close()

	frame := s.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, 16, frame.Size())
	frame.Unref()
}

func TestFileTooShort(t *testing.T) {
	s, err := New("raw", &config.RawSourceCfg{
		FrameCfg: config.FrameCfg{Format: "RGBA", Width: 4, Height: 4},
		Path:     rawFile(t, make([]byte, 10)),
	})
	require.NoError(t, err)
	assert.Error(t, s.Start())
}
