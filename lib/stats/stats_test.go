package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate(t *testing.T) {
	s := New()
	s.Update("GLMemory", true)
	s.Update("GLMemory", true)
	s.Update("", false)
	s.SetWsClients(2)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Uploads)
	assert.Equal(t, uint64(1), snap.Failures)
	assert.Empty(t, snap.Method)
	assert.Equal(t, 2, snap.WsClients)
	assert.Greater(t, snap.Uptime, 0.0)
}
