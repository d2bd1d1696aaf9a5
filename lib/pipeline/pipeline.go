// Package pipeline runs the upload daemon: one context, one source and one
// upload session driven at the source framerate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fosdem/glupload/lib/api"
	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/rendering"
	"github.com/fosdem/glupload/lib/source"
	"github.com/fosdem/glupload/lib/source/cmdsource"
	"github.com/fosdem/glupload/lib/source/imgsource"
	"github.com/fosdem/glupload/lib/source/rawsource"
	"github.com/fosdem/glupload/lib/stats"
	"github.com/fosdem/glupload/lib/upload"
	"github.com/fosdem/glupload/lib/utils"
)

var (
	ErrNegotiation = errors.New("no output format can be negotiated")
	ErrUpload      = errors.New("upload failed")
)

type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger

	context  rendering.Context
	producer producer
	// producerContext owns the textures of a texture source
	producerContext rendering.Context

	source  source.Source
	session *upload.Upload
	inCaps  *caps.Caps
	outCaps *caps.Caps

	Stats *stats.Stats
	api   *api.Api

	mu     sync.Mutex
	cancel context.CancelFunc
	killed bool
}

// MakeContextAndUpload runs the daemon described by cfg until ctx is done
// or the API asks for a shutdown.
func MakeContextAndUpload(ctx context.Context, cfg *config.Config) error {
	p, err := New(cfg)
	if err != nil {
		return err
	}
	defer p.Close()
	p.ServeInBackground()
	return p.Run(ctx)
}

func New(cfg *config.Config) (p *Pipeline, err error) {
	p = &Pipeline{
		cfg:    cfg,
		logger: slog.Default().With(slog.String("module", cfg.Name)),
		Stats:  stats.New(),
	}
	defer func() {
		if err != nil {
			p.Close()
			p = nil
		}
	}()

	if err = p.makeContexts(); err != nil {
		return
	}
	if p.source, err = makeSource(cfg); err != nil {
		return
	}
	if err = p.source.Start(); err != nil {
		return p, fmt.Errorf("could not start source %s: %w", p.source.Name(), err)
	}

	info := p.source.Info()
	info.Framerate = caps.Fraction{Num: cfg.Source.Framerate, Den: 1}
	p.producer.memory = cfg.Source.Memory
	p.producer.info = info
	p.producer.context = p.producerContext
	p.inCaps = p.producer.inputCaps()

	filter, err := cfg.Output.Filter()
	if err != nil {
		return
	}
	if p.outCaps, err = Negotiate(p.context, p.inCaps, filter); err != nil {
		return
	}

	if cfg.Api != nil {
		p.api = api.New(cfg.Api, p.Stats, p)
	}
	p.session = upload.New(p.context, upload.WithName(cfg.Name), upload.WithMethodListener(p.methodChanged))
	if !p.session.SetCaps(p.inCaps, p.outCaps) {
		return p, fmt.Errorf("%w: session refused %s to %s", ErrNegotiation, p.inCaps, p.outCaps)
	}
	p.logger.Info(fmt.Sprintf("Uploading %s to %s", p.inCaps, p.outCaps))

	p.proposeAllocation()
	return p, nil
}

// Negotiate picks the output caps for in: the first format any method can
// produce that filter allows.
func Negotiate(ctx rendering.Context, in, filter *caps.Caps) (*caps.Caps, error) {
	out := upload.TransformCaps(ctx, upload.DirectionSink, in, filter)
	if out.IsEmpty() {
		return nil, fmt.Errorf("%w: from %s with filter %s", ErrNegotiation, in, filter)
	}
	return out.Fixate(), nil
}

func (p *Pipeline) makeContexts() error {
	c := p.cfg.Context
	switch c.Type {
	case config.ContextSoftware:
		primary, err := rendering.NewSoftContext(p.cfg.Name, nil)
		if err != nil {
			return err
		}
		p.context = primary
		if c.ShareWithPrimary {
			shared, err := rendering.NewSoftContext(p.cfg.Name+"-producer", primary)
			if err != nil {
				return err
			}
			p.producerContext = shared
		}
	case config.ContextGL:
		glCfg := rendering.GLContextCfg{Name: p.cfg.Name, Width: c.Width, Height: c.Height, UseEGL: c.UseEGL}
		primary, err := rendering.NewGLContext(glCfg, nil)
		if err != nil {
			return err
		}
		p.context = primary
		if c.ShareWithPrimary {
			glCfg.Name += "-producer"
			shared, err := rendering.NewGLContext(glCfg, primary)
			if err != nil {
				return err
			}
			p.producerContext = shared
		}
	default:
		return fmt.Errorf("unknown context type %s", c.Type)
	}
	return nil
}

func makeSource(cfg *config.Config) (source.Source, error) {
	name := cfg.Name + "-source"
	var (
		src source.Source
		err error
	)
	switch s := cfg.Source.Cfg.(type) {
	case *config.ImgSourceCfg:
		src, err = imgsource.New(name, s)
	case *config.RawSourceCfg:
		src, err = rawsource.New(name, s)
	case *config.CommandSourceCfg:
		src, err = cmdsource.New(name, s)
	default:
		return nil, fmt.Errorf("unsupported source type %s", cfg.Source.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("could not create source %s: %w", name, err)
	}
	return src, nil
}

// proposeAllocation asks the session what the producer should allocate and
// takes the consumer context from the upload meta proposal.
func (p *Pipeline) proposeAllocation() {
	query := buffer.NewAllocationQuery(p.inCaps, true)
	p.session.ProposeAllocation(nil, query)
	for _, param := range query.Params {
		p.logger.Debug(fmt.Sprintf("Proposed allocator %s", param.Allocator))
	}
	for _, pool := range query.Pools {
		p.logger.Debug(fmt.Sprintf("Proposed pool %s of %d byte buffers", pool.Pool.Name(), pool.Size))
	}
	if meta, ok := query.Meta(buffer.MetaAPITextureUpload); ok {
		if ctx, ok := meta.Params[upload.MetaParamContext].(rendering.Context); ok {
			p.producer.consumer = ctx
		}
	}
}

func (p *Pipeline) methodChanged(ev upload.MethodEvent) {
	p.logger.Info(fmt.Sprintf("Upload method is now %s (%s)", ev.Method, ev.Reason))
	if p.api != nil {
		p.api.PublishMethodEvent(ev)
	}
}

func (p *Pipeline) ServeInBackground() {
	if p.api != nil {
		p.api.ServeInBackground()
	}
}

// Run uploads a frame per source frame period until ctx is done or Kill is
// called. Failed uploads are counted and logged, never fatal.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.mu.Lock()
	if p.killed {
		p.mu.Unlock()
		return nil
	}
	p.cancel = cancel
	p.mu.Unlock()

	pacer := utils.NewFramePacer(p.cfg.Source.Framerate)
	for {
		if err := pacer.Wait(ctx); err != nil {
			return nil
		}
		if err := p.UploadOne(); err != nil {
			p.logger.Debug(err.Error())
		}
	}
}

// UploadOne uploads the current source frame. It does nothing when the
// source has no frame yet.
func (p *Pipeline) UploadOne() error {
	frame := p.source.Frame()
	if frame == nil {
		return nil
	}
	defer frame.Unref()

	in, err := p.producer.produce(frame)
	if err != nil {
		p.Stats.Update("", false)
		return fmt.Errorf("could not produce input buffer: %w", err)
	}
	defer in.Unref()

	out, ret := p.session.PerformWithBuffer(in)
	_, method := p.session.State()
	if ret != upload.ReturnDone {
		p.Stats.Update(method, false)
		return fmt.Errorf("%w: %s", ErrUpload, ret)
	}
	defer out.Unref()

	if err := buffer.TransferAll(out); err != nil {
		p.Stats.Update(method, false)
		return fmt.Errorf("%w: %w", ErrUpload, err)
	}
	p.Stats.Update(method, true)
	return nil
}

// Kill stops Run.
func (p *Pipeline) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = true
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Pipeline) Context() rendering.Context {
	return p.context
}

func (p *Pipeline) Session() *upload.Upload {
	return p.session
}

func (p *Pipeline) Source() source.Source {
	return p.source
}

func (p *Pipeline) Close() {
	if p.api != nil {
		if err := p.api.Close(); err != nil {
			p.logger.Warn(fmt.Sprintf("could not stop api: %s", err))
		}
	}
	if p.session != nil {
		p.session.Close()
	}
	if p.source != nil {
		if err := p.source.Close(); err != nil {
			p.logger.Warn(fmt.Sprintf("could not close source: %s", err))
		}
	}
	if p.producerContext != nil {
		p.producerContext.Close()
	}
	if p.context != nil {
		p.context.Close()
	}
}
