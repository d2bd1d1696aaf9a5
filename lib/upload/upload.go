// Package upload turns video buffers of any supported memory kind into
// buffers of GL textures owned by one rendering context.
//
// An Upload session tries the methods of its Registry in order and sticks
// with the first one that succeeds until the formats change or the method
// fails.
package upload

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/metrics"
	"github.com/fosdem/glupload/lib/rendering"
)

type State int

const (
	StateUnconfigured State = iota
	StateMethodSelected
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateMethodSelected:
		return "method-selected"
	case StateExhausted:
		return "exhausted"
	}
	return "unconfigured"
}

// MethodEvent reports a change of the method a session uses.
type MethodEvent struct {
	Session string `json:"session"`
	Method  string `json:"method"`
	Index   int    `json:"index"`
	Reason  string `json:"reason"`
}

type Option func(*Upload)

func WithRegistry(r *Registry) Option {
	return func(u *Upload) {
		u.registry = r
	}
}

func WithName(name string) Option {
	return func(u *Upload) {
		u.name = name
	}
}

// WithMethodListener registers fn to be called whenever the session picks
// a method. fn runs with the session locked and must not call back into it.
func WithMethodListener(fn func(MethodEvent)) Option {
	return func(u *Upload) {
		u.listener = fn
	}
}

type Upload struct {
	ctx      rendering.Context
	registry *Registry
	name     string
	logger   *slog.Logger
	metrics  metrics.UploadMetrics
	listener func(MethodEvent)

	mu      sync.Mutex
	inCaps  *caps.Caps
	outCaps *caps.Caps
	inInfo  encdec.VideoInfo
	outInfo encdec.VideoInfo

	// proposers answer allocation queries, one per registry method
	proposers []MethodImpl

	state       State
	method      Method
	methodImpl  MethodImpl
	methodIndex int
	// next registry index to try
	cursor int
}

func New(ctx rendering.Context, opts ...Option) *Upload {
	u := &Upload{
		ctx:         ctx,
		registry:    DefaultRegistry(),
		name:        "glupload",
		methodIndex: -1,
	}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = slog.Default().With(slog.String("module", u.name))
	u.metrics = metrics.NewUploadMetrics(u.name)
	u.proposers = make([]MethodImpl, u.registry.Len())
	for i, m := range u.registry.methods {
		u.proposers[i] = m.New(u)
	}
	return u
}

func (u *Upload) Name() string {
	return u.name
}

func (u *Upload) Context() rendering.Context {
	return u.ctx
}

func (u *Upload) Registry() *Registry {
	return u.registry
}

// SetCaps configures the formats to upload between. in must be fixed.
// Setting the formats already configured keeps the current method.
func (u *Upload) SetCaps(in, out *caps.Caps) bool {
	if in == nil || out == nil {
		return false
	}
	if !in.IsFixed() {
		u.logger.Warn(fmt.Sprintf("input caps %s are not fixed", in))
		return false
	}
	inInfo, err := encdec.InfoFromCaps(in)
	if err != nil {
		u.logger.Warn(fmt.Sprintf("invalid input caps %s: %s", in, err))
		return false
	}
	outInfo, err := encdec.InfoFromCaps(out)
	if err != nil {
		u.logger.Warn(fmt.Sprintf("invalid output caps %s: %s", out, err))
		return false
	}

	for _, info := range []*encdec.VideoInfo{inInfo, outInfo} {
		if n := info.ExpectedMemories(); n > MaxPlanes {
			u.logger.Warn(fmt.Sprintf("%s needs %d memories, at most %d are supported", info.Caps(), n, MaxPlanes))
			return false
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.inCaps != nil && u.inCaps.IsEqual(in) && u.outCaps.IsEqual(out) {
		return true
	}

	u.inCaps = in.Copy()
	u.outCaps = out.Copy()
	u.inInfo = *inInfo
	u.outInfo = *outInfo
	u.freeMethod()
	u.cursor = 0
	u.state = StateUnconfigured
	u.logger.Debug(fmt.Sprintf("configured upload from %s to %s", in, out))
	return true
}

// Caps returns copies of the configured formats.
func (u *Upload) Caps() (in, out *caps.Caps) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.inCaps.Copy(), u.outCaps.Copy()
}

// State returns the session state and the name of the selected method, if
// any.
func (u *Upload) State() (State, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.method == nil {
		return u.state, ""
	}
	return u.state, u.method.Name()
}

// ProposeAllocation lets every method add what it wants the producer to
// allocate. decide is the downstream answer, if one exists.
func (u *Upload) ProposeAllocation(decide, query *buffer.AllocationQuery) {
	if query == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, p := range u.proposers {
		p.ProposeAllocation(decide, query)
	}
}

// PerformWithBuffer uploads buf. On ReturnDone the caller owns the
// returned buffer, which may be buf itself with an extra reference. buf is
// never consumed.
func (u *Upload) PerformWithBuffer(buf *buffer.Buffer) (*buffer.Buffer, Return) {
	if buf == nil {
		u.logger.Error("cannot upload a nil buffer")
		return nil, ReturnError
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.inCaps == nil || u.outCaps == nil {
		u.logger.Error("cannot upload before the caps are set")
		return nil, ReturnError
	}

	if u.methodImpl == nil {
		if u.state == StateExhausted {
			u.cursor = 0
		}
		if !u.nextMethod("initial") {
			u.exhausted()
			return nil, ReturnError
		}
	}

	for {
		name := u.method.Name()
		if !u.methodImpl.Accept(buf, u.inCaps, u.outCaps) {
			u.logger.Debug(fmt.Sprintf("uploader %s does not accept the buffer", name))
			u.metrics.Result(name, metrics.ResultRejected)
			if !u.nextMethod("rejected") {
				u.exhausted()
				return nil, ReturnError
			}
			continue
		}

		outbuf, ret := u.methodImpl.Perform(buf)
		u.metrics.Result(name, ret.String())
		if ret == ReturnDone {
			if outbuf != buf {
				buffer.CopyInto(outbuf, buf, buffer.CopyBufferFlags|buffer.CopyTimestamps)
			}
			return outbuf, ReturnDone
		}
		if outbuf != nil {
			outbuf.Unref()
		}

		if ret == ReturnUnsharedContext {
			m, i, ok := u.registry.Fallback()
			if ok && u.methodIndex != i {
				u.logger.Warn(fmt.Sprintf("uploader %s cannot share the buffer's context, falling back to %s", name, m.Name()))
				u.metrics.Fallbacks.WithLabelValues(name).Inc()
				u.selectMethod(i, "unshared-context")
				continue
			}
			u.logger.Warn(fmt.Sprintf("uploader %s cannot share the buffer's context and no fallback is left", name))
		} else if ret == ReturnReconfigure {
			u.logger.Debug(fmt.Sprintf("uploader %s requested reconfiguration", name))
		} else {
			u.logger.Warn(fmt.Sprintf("uploader %s failed, trying the next one", name))
		}

		if !u.nextMethod(ret.String()) {
			u.exhausted()
			return nil, ReturnError
		}
	}
}

// Close releases the method states. The session must not be used after.
func (u *Upload) Close() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.freeMethod()
	for _, p := range u.proposers {
		p.Free()
	}
	u.proposers = nil
	u.inCaps = nil
	u.outCaps = nil
	u.state = StateUnconfigured
}

// nextMethod moves to the method at the cursor. It returns false once the
// registry is exhausted.
func (u *Upload) nextMethod(reason string) bool {
	if u.cursor >= u.registry.Len() {
		return false
	}
	u.selectMethod(u.cursor, reason)
	u.cursor++
	return true
}

// selectMethod replaces the current method without moving the cursor.
func (u *Upload) selectMethod(i int, reason string) {
	u.freeMethod()
	u.method = u.registry.methods[i]
	u.methodImpl = u.method.New(u)
	u.methodIndex = i
	u.state = StateMethodSelected
	u.logger.Debug(fmt.Sprintf("attempting upload with uploader %s", u.method.Name()))
	u.metrics.Selections.WithLabelValues(u.method.Name()).Inc()
	if u.listener != nil {
		u.listener(MethodEvent{Session: u.name, Method: u.method.Name(), Index: i, Reason: reason})
	}
}

func (u *Upload) freeMethod() {
	if u.methodImpl != nil {
		u.methodImpl.Free()
	}
	u.method = nil
	u.methodImpl = nil
	u.methodIndex = -1
}

func (u *Upload) exhausted() {
	u.freeMethod()
	u.state = StateExhausted
	u.logger.Error(fmt.Sprintf("no uploader could handle a buffer from %s to %s", u.inCaps, u.outCaps))
	u.metrics.Exhausted.Inc()
}
