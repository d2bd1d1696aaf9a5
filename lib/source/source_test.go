package source

import (
	"testing"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameSlot(t *testing.T) {
	s := NewFrameSlot(t.Name())
	assert.Nil(t, s.Get())

	first := buffer.NewWrapped([]byte{1})
	second := buffer.NewWrapped([]byte{2})
	s.Put(first)
	s.Put(second)
	assert.Panics(t, first.Unref, "the replaced frame was released")

	got := s.Get()
	require.Same(t, second, got)
	again := s.Get()
	assert.Same(t, second, again)
	assert.Equal(t, 3, second.RefCount())

	got.Unref()
	again.Unref()
	s.Close()
	assert.Equal(t, 0, second.RefCount())
}
