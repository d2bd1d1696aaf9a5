// Package rawsource plays back a file of concatenated raw frames, mapped
// into memory so that frames reach the upload without a copy.
package rawsource

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/metrics"
	"golang.org/x/sys/unix"
)

type RawSource struct {
	name    string
	path    string
	info    encdec.VideoInfo
	logger  *slog.Logger
	metrics metrics.StreamMetrics

	mu      sync.Mutex
	data    []byte
	nFrames int
	next    int
	// frames handed out and not yet released; the mapping outlives them
	inFlight sync.WaitGroup
}

func New(name string, cfg *config.RawSourceCfg) (*RawSource, error) {
	info, err := cfg.Info()
	if err != nil {
		return nil, err
	}
	return &RawSource{
		name:    name,
		path:    string(cfg.Path),
		info:    *info,
		logger:  slog.Default().With(slog.String("module", name)),
		metrics: metrics.NewStreamMetrics(name),
	}, nil
}

func (s *RawSource) Name() string {
	return s.name
}

func (s *RawSource) Info() encdec.VideoInfo {
	return s.info
}

// frameSize is the size of one frame of every view.
func (s *RawSource) frameSize() int {
	return s.info.Size * s.info.Views
}

func (s *RawSource) Start() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("could not open %s: %w", s.path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat %s: %w", s.path, err)
	}
	nFrames := int(st.Size()) / s.frameSize()
	if nFrames == 0 {
		return fmt.Errorf("%s holds %d bytes, less than one %d byte frame", s.path, st.Size(), s.frameSize())
	}
	if rest := int(st.Size()) % s.frameSize(); rest != 0 {
		s.logger.Warn(fmt.Sprintf("Ignoring %d trailing bytes of %s", rest, s.path))
	}

	data, err := unix.Mmap(int(f.Fd()), 0, nFrames*s.frameSize(), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("could not map %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.nFrames = nFrames
	s.logger.Info(fmt.Sprintf("Playing %d frames of %s from %s", nFrames, &s.info, s.path))
	return nil
}

// Frame returns the next frame, looping over the file.
func (s *RawSource) Frame() *buffer.Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.FramesRequested.Inc()
	if s.data == nil {
		return nil
	}

	start := s.next * s.frameSize()
	s.next = (s.next + 1) % s.nFrames
	s.inFlight.Add(1)
	s.metrics.FramesRead.Inc()
	return buffer.NewWithMemories(buffer.NewSystemMemory(s.data[start:start+s.frameSize()], s.inFlight.Done))
}

// Close unmaps the file once every frame handed out is released.
func (s *RawSource) Close() error {
	s.mu.Lock()
	data := s.data
	s.data = nil
	s.mu.Unlock()
	if data == nil {
		return nil
	}
	s.inFlight.Wait()
	return unix.Munmap(data)
}
