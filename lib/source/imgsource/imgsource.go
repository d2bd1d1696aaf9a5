package imgsource

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/source"
	"github.com/jhenstridge/go-inotify"
)

// ImgSource produces a still image as RGBA frames. With inotify enabled the
// image is reloaded whenever its file is rewritten.
type ImgSource struct {
	name    string
	path    string
	inotify bool
	logger  *slog.Logger

	mu   sync.Mutex
	img  *image.NRGBA
	info encdec.VideoInfo

	slot    *source.FrameSlot
	watcher *inotify.Watcher
}

func New(name string, cfg *config.ImgSourceCfg) (*ImgSource, error) {
	s := &ImgSource{
		name:    name,
		path:    string(cfg.Path),
		inotify: cfg.Inotify,
		logger:  slog.Default().With(slog.String("module", name)),
		slot:    source.NewFrameSlot(name),
	}

	if s.path != "" {
		img, err := s.LoadImage(s.path)
		if err != nil {
			return nil, err
		}
		s.setImage(img)
	} else {
		s.setImage(image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)))
	}
	return s, nil
}

func (s *ImgSource) Name() string {
	return s.name
}

func (s *ImgSource) Info() encdec.VideoInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *ImgSource) Start() error {
	s.publish()
	if s.inotify {
		watcher, err := inotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("could not create inotify watcher: %w", err)
		}
		if _, err := watcher.Watch(s.path); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("could not watch %s: %w", s.path, err)
		}
		s.watcher = watcher
		go s.watch(watcher)
	}
	return nil
}

func (s *ImgSource) watch(watcher *inotify.Watcher) {
	for ev := range watcher.Event {
		if ev.Mask&inotify.IN_CLOSE_WRITE == 0 {
			continue
		}
		s.logger.Debug("Reloading image due to inotify event")
		time.Sleep(100 * time.Millisecond)

		img, err := s.LoadImage(s.path)
		if err != nil {
			s.logger.Error(fmt.Sprintf("Error loading image: %s", err))
			continue
		}
		if err := s.SetImage(img); err != nil {
			s.logger.Error(fmt.Sprintf("Error setting image: %s", err))
		}
	}
}

func (s *ImgSource) Frame() *buffer.Buffer {
	return s.slot.Get()
}

func (s *ImgSource) Close() error {
	var err error
	if s.watcher != nil {
		err = s.watcher.Close()
		s.watcher = nil
	}
	s.slot.Close()
	return err
}

func (s *ImgSource) LoadImage(path string) (image.Image, error) {
	s.logger.Info(fmt.Sprintf("Loading %s", path))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	return img, nil
}

// GetImage returns the image currently produced.
func (s *ImgSource) GetImage() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.img
}

// SetImage replaces the produced image. The size can not change once the
// upload formats are negotiated.
func (s *ImgSource) SetImage(img image.Image) error {
	s.mu.Lock()
	size := image.Pt(s.info.Width, s.info.Height)
	s.mu.Unlock()
	if img.Bounds().Size() != size {
		return fmt.Errorf("image is %s, source produces %dx%d", img.Bounds().Size(), size.X, size.Y)
	}
	s.setImage(img)
	s.publish()
	return nil
}

func (s *ImgSource) setImage(img image.Image) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, img.Bounds().Min, draw.Src)

	info, err := encdec.NewVideoInfo(encdec.FormatRGBA, nrgba.Rect.Dx(), nrgba.Rect.Dy())
	if err != nil {
		s.logger.Error(fmt.Sprintf("Unsupported image: %s", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.img = nrgba
	s.info = *info
}

// publish hands the current image to the reader. Every frame shares the
// pixels of the image, which are never written after setImage.
func (s *ImgSource) publish() {
	s.mu.Lock()
	img := s.img
	s.mu.Unlock()
	if img == nil {
		return
	}
	s.slot.Put(buffer.NewWrapped(img.Pix))
}
