package rendering

import (
	"fmt"
	"log/slog"
	"sync"
)

// SoftTexture is a texture of a SoftContext, kept in host memory.
type SoftTexture struct {
	Target TextureTarget
	Format TextureFormat
	Width  int
	Height int
	Data   []byte
	// Image is the platform image imported into the texture, if any.
	Image uintptr
}

// SoftContext is a headless Context without a GPU. It has the same thread
// affinity rules as a GL context, which makes it usable in place of one for
// tests and for machines without a display.
type SoftContext struct {
	name   string
	shared *shareGroup
	thread *contextThread

	mu       sync.Mutex
	textures map[uint32]*SoftTexture
	lastID   uint32
	features map[string]bool
}

// NewSoftContext creates a context. When share is non-nil the new context
// joins its share group.
func NewSoftContext(name string, share *SoftContext) (*SoftContext, error) {
	c := &SoftContext{
		name:     name,
		textures: make(map[uint32]*SoftTexture),
		features: make(map[string]bool),
	}
	if share != nil {
		c.shared = share.shared
	} else {
		c.shared = newShareGroup()
	}
	var err error
	c.thread, err = startContextThread(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start context thread: %w", err)
	}
	slog.Debug(fmt.Sprintf("Created software context %s", name), slog.String("module", name))
	return c, nil
}

func (c *SoftContext) group() *shareGroup {
	return c.shared
}

func (c *SoftContext) Name() string            { return c.name }
func (c *SoftContext) API() API                { return APINone }
func (c *SoftContext) Platform() Platform      { return PlatformNone }
func (c *SoftContext) Handle() uintptr         { return uintptr(c.shared.id) }
func (c *SoftContext) CanShare(o Context) bool { return canShare(c, o) }

// SetFeatures marks extensions as available for CheckFeature.
func (c *SoftContext) SetFeatures(features ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range features {
		c.features[f] = true
	}
}

func (c *SoftContext) CheckFeature(feature string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.features[feature]
}

func (c *SoftContext) ThreadAdd(fn func(Context)) {
	c.thread.run(func() { fn(c) })
}

func (c *SoftContext) GenTexture(target TextureTarget, format TextureFormat, width, height int) (uint32, error) {
	if width < 1 || height < 1 {
		return 0, fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	c.textures[c.lastID] = &SoftTexture{
		Target: target,
		Format: format,
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*format.BytesPerPixel()),
	}
	return c.lastID, nil
}

func (c *SoftContext) DeleteTexture(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.textures, id)
}

func (c *SoftContext) TexSubImage(id uint32, target TextureTarget, format TextureFormat, width, height, stride int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tex, ok := c.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoTexture, id)
	}
	if tex.Format != format || width > tex.Width || height > tex.Height {
		return fmt.Errorf("upload of %s %dx%d does not fit texture %d (%s %dx%d)",
			format, width, height, id, tex.Format, tex.Width, tex.Height)
	}
	row := width * format.BytesPerPixel()
	if stride < row || len(data) < stride*(height-1)+row {
		return fmt.Errorf("upload data too short: %d bytes for %d rows of stride %d", len(data), height, stride)
	}
	texStride := tex.Width * format.BytesPerPixel()
	for y := range height {
		copy(tex.Data[y*texStride:y*texStride+row], data[y*stride:y*stride+row])
	}
	TextureUploadCounter.Add(uint64(row * height))
	return nil
}

func (c *SoftContext) ImportImage(id uint32, target TextureTarget, image uintptr) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tex, ok := c.textures[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoTexture, id)
	}
	if image == 0 {
		return fmt.Errorf("cannot import null image into texture %d", id)
	}
	tex.Image = image
	return nil
}

// Texture returns a snapshot of a texture for inspection.
func (c *SoftContext) Texture(id uint32) (SoftTexture, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tex, ok := c.textures[id]
	if !ok {
		return SoftTexture{}, false
	}
	return *tex, true
}

func (c *SoftContext) NumTextures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.textures)
}

func (c *SoftContext) Close() {
	c.thread.stop()
}
