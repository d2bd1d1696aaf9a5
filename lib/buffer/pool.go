package buffer

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
)

var ErrPoolConfig = errors.New("invalid buffer pool config")

const (
	PoolOptionVideoMeta  = "VideoMeta"
	PoolOptionGLSyncMeta = "GLSyncMeta"
)

type PoolConfig struct {
	Caps       *caps.Caps
	Size       int
	MinBuffers int
	MaxBuffers int
	Options    []string
}

func (c *PoolConfig) AddOption(option string) {
	if !c.HasOption(option) {
		c.Options = append(c.Options, option)
	}
}

func (c PoolConfig) HasOption(option string) bool {
	return slices.Contains(c.Options, option)
}

// Pool is a source of buffers that a consumer proposes to its producer.
type Pool interface {
	Name() string
	Config() PoolConfig
	SetConfig(cfg PoolConfig) error
}

// GLBufferPool hands out buffers backed by textures of one context.
type GLBufferPool struct {
	ctx    rendering.Context
	config PoolConfig
}

func NewGLBufferPool(ctx rendering.Context) *GLBufferPool {
	return &GLBufferPool{ctx: ctx}
}

func IsGLBufferPool(p Pool) bool {
	_, ok := p.(*GLBufferPool)
	return ok
}

func (p *GLBufferPool) Name() string {
	return "glbufferpool-" + p.ctx.Name()
}

func (p *GLBufferPool) Context() rendering.Context {
	return p.ctx
}

func (p *GLBufferPool) Config() PoolConfig {
	return p.config
}

// SetConfig accepts a config whose caps describe a video format with a
// frame size that fits in Size, and whose options are understood by the
// pool.
func (p *GLBufferPool) SetConfig(cfg PoolConfig) error {
	info, err := encdec.InfoFromCaps(cfg.Caps)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPoolConfig, err)
	}
	if cfg.Size < info.Size {
		return fmt.Errorf("%w: size %d is smaller than a frame (%d)", ErrPoolConfig, cfg.Size, info.Size)
	}
	if cfg.MaxBuffers != 0 && cfg.MaxBuffers < cfg.MinBuffers {
		return fmt.Errorf("%w: max buffers %d < min buffers %d", ErrPoolConfig, cfg.MaxBuffers, cfg.MinBuffers)
	}
	for _, o := range cfg.Options {
		if o != PoolOptionVideoMeta && o != PoolOptionGLSyncMeta && !strings.HasPrefix(o, "GLTextureTarget") {
			return fmt.Errorf("%w: unknown option %s", ErrPoolConfig, o)
		}
	}
	p.config = cfg
	return nil
}

// TextureTarget is the texture target requested through the config options.
func (p *GLBufferPool) TextureTarget() rendering.TextureTarget {
	for _, t := range []rendering.TextureTarget{rendering.TextureTargetRectangle, rendering.TextureTargetExternalOES} {
		if p.config.HasOption(t.PoolOption()) {
			return t
		}
	}
	return rendering.TextureTarget2D
}
