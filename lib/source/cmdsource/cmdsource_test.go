package cmdsource

import (
	"testing"
	"time"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadsFramesFromStdout(t *testing.T) {
	s, err := New("cmd", &config.CommandSourceCfg{
		FrameCfg: config.FrameCfg{Format: "GRAY8", Width: 4, Height: 1},
		Cmd:      `printf 'abcdefgh'; sleep 10`,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())
	defer s.Close()

	var frame *buffer.Buffer
	require.Eventually(t, func() bool {
		frame = s.Frame()
		return frame != nil
	}, 5*time.Second, 10*time.Millisecond)
	defer frame.Unref()

	// the latest frame wins
	require.Eventually(t, func() bool {
		f := s.Frame()
		defer f.Unref()
		return string(f.PeekMemory(0).(*buffer.SystemMemory).Data) == "efgh"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestCloseStopsCommand(t *testing.T) {
	s, err := New("cmd", &config.CommandSourceCfg{
		FrameCfg: config.FrameCfg{Format: "GRAY8", Width: 4, Height: 1},
		Cmd:      `sleep 30`,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start())

	start := time.Now()
	require.NoError(t, s.Close())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Nil(t, s.Frame())
}
