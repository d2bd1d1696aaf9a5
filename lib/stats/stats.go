package stats

import (
	"sync"
	"time"

	"github.com/fosdem/glupload/lib/rendering"
	"github.com/fosdem/glupload/lib/utils"
)

type Snapshot struct {
	TextureUpload      uint64  `json:"texture_upload"`
	TextureUploadAvgGb float64 `json:"texture_upload_avg_gb"`
	Uptime             float64 `json:"uptime"`
	FPS                uint64  `json:"fps"`
	FrameTimeMs        float64 `json:"frame_time_ms"`
	Uploads            uint64  `json:"uploads"`
	Failures           uint64  `json:"failures"`
	Method             string  `json:"method"`
	WsClients          int     `json:"ws_clients"`
}

type Stats struct {
	mu  sync.Mutex
	cur Snapshot

	frameCounter uint64
	frameTimer   time.Time
	delta        utils.DeltaTimer
	start        time.Time
}

func New() *Stats {
	s := &Stats{}
	s.start = time.Now()
	s.frameTimer = s.start
	return s
}

// Update records one upload attempt done with method.
func (s *Stats) Update(method string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur.Method = method
	if ok {
		s.cur.Uploads++
		s.frameCounter++
	} else {
		s.cur.Failures++
	}
	s.cur.FrameTimeMs = float64(s.delta.Next().Microseconds()) / 1e3
	if time.Since(s.frameTimer) > 1*time.Second {
		s.cur.FPS = s.frameCounter
		s.frameCounter = 0
		s.frameTimer = time.Now()
	}

	s.cur.Uptime = float64(time.Since(s.start).Nanoseconds()) / 1e9
	s.cur.TextureUpload = rendering.TextureUploadCounter.Load()
	if s.cur.Uptime > 0 {
		s.cur.TextureUploadAvgGb = float64(s.cur.TextureUpload) / (s.cur.Uptime * 1024 * 1024 * 1024)
	}
}

func (s *Stats) SetWsClients(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.WsClients = n
}

// Snapshot returns a copy that is safe to encode while uploads go on.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}
