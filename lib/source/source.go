// Package source holds the producers of frames to upload.
package source

import (
	"sync"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/metrics"
)

// Source produces frames in system memory, laid out as Info describes.
type Source interface {
	Name() string
	Info() encdec.VideoInfo
	Start() error
	// Frame returns a reference to the frame to upload next, or nil when
	// none is ready. The caller unrefs it.
	Frame() *buffer.Buffer
	Close() error
}

// FrameSlot hands the latest frame of a writer to a reader. Frames that get
// replaced before being read are dropped instead of queued, which keeps the
// latency minimal.
type FrameSlot struct {
	mu      sync.Mutex
	latest  *buffer.Buffer
	unread  bool
	metrics metrics.StreamMetrics
}

func NewFrameSlot(name string) *FrameSlot {
	return &FrameSlot{metrics: metrics.NewStreamMetrics(name)}
}

// Put takes over buf as the latest frame.
func (s *FrameSlot) Put(buf *buffer.Buffer) {
	s.mu.Lock()
	old, dropped := s.latest, s.unread
	s.latest = buf
	s.unread = true
	s.mu.Unlock()

	s.metrics.FramesWritten.Inc()
	if old != nil {
		if dropped {
			s.metrics.FramesDropped.Inc()
		}
		old.Unref()
	}
}

// Get returns a reference to the latest frame. The same frame is handed out
// again until a new one is put.
func (s *FrameSlot) Get() *buffer.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.FramesRequested.Inc()
	if s.latest == nil {
		return nil
	}
	s.metrics.FramesRead.Inc()
	s.unread = false
	return s.latest.Ref()
}

func (s *FrameSlot) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest != nil {
		s.latest.Unref()
		s.latest = nil
	}
}
