package upload_test

import (
	"testing"
	"time"

	"github.com/fosdem/glupload/lib/buffer"
	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/rendering"
	"github.com/fosdem/glupload/lib/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMethod struct {
	name    string
	flags   upload.MethodFlags
	accept  func(buf *buffer.Buffer) bool
	perform func(buf *buffer.Buffer) (*buffer.Buffer, upload.Return)

	news     int
	accepts  int
	performs int
	frees    int
}

func (f *fakeMethod) Name() string              { return f.name }
func (f *fakeMethod) Flags() upload.MethodFlags { return f.flags }

func (f *fakeMethod) InputTemplateCaps() *caps.Caps {
	return caps.MustParse("video/x-raw, format=RGBA")
}

func (f *fakeMethod) New(u *upload.Upload) upload.MethodImpl {
	f.news++
	return &fakeImpl{method: f}
}

func (f *fakeMethod) TransformCaps(ctx rendering.Context, direction upload.Direction, c *caps.Caps) *caps.Caps {
	return c.WithFeatures(caps.FeatureMemoryGL)
}

type fakeImpl struct {
	method *fakeMethod
}

func (i *fakeImpl) Accept(buf *buffer.Buffer, in, out *caps.Caps) bool {
	i.method.accepts++
	if i.method.accept == nil {
		return true
	}
	return i.method.accept(buf)
}

func (i *fakeImpl) ProposeAllocation(decide, query *buffer.AllocationQuery) {}

func (i *fakeImpl) Perform(buf *buffer.Buffer) (*buffer.Buffer, upload.Return) {
	i.method.performs++
	if i.method.perform == nil {
		return buf.Ref(), upload.ReturnDone
	}
	return i.method.perform(buf)
}

func (i *fakeImpl) Free() {
	i.method.frees++
}

func reject(*buffer.Buffer) bool { return false }

func returning(r upload.Return) func(*buffer.Buffer) (*buffer.Buffer, upload.Return) {
	return func(*buffer.Buffer) (*buffer.Buffer, upload.Return) {
		return nil, r
	}
}

var (
	rgbaIn  = caps.MustParse("video/x-raw, format=RGBA, width=4, height=4")
	rgbaOut = caps.MustParse("video/x-raw(memory:GLMemory), format=RGBA, width=4, height=4")
)

func softContext(t *testing.T) *rendering.SoftContext {
	t.Helper()
	ctx, err := rendering.NewSoftContext(t.Name(), nil)
	require.NoError(t, err)
	t.Cleanup(ctx.Close)
	return ctx
}

func newSession(t *testing.T, methods ...upload.Method) *upload.Upload {
	t.Helper()
	u := upload.New(softContext(t), upload.WithName(t.Name()), upload.WithRegistry(upload.NewRegistry(methods...)))
	t.Cleanup(u.Close)
	require.True(t, u.SetCaps(rgbaIn, rgbaOut))
	return u
}

func uploadOK(t *testing.T, u *upload.Upload, buf *buffer.Buffer) *buffer.Buffer {
	t.Helper()
	out, ret := u.PerformWithBuffer(buf)
	require.Equal(t, upload.ReturnDone, ret)
	require.NotNil(t, out)
	return out
}

func TestSelectedMethodIsSticky(t *testing.T) {
	a := &fakeMethod{name: "a", accept: reject}
	b := &fakeMethod{name: "b"}
	u := newSession(t, a, b)

	buf := buffer.NewWrapped(make([]byte, 64))
	uploadOK(t, u, buf).Unref()
	uploadOK(t, u, buf).Unref()

	assert.Equal(t, 1, a.accepts)
	assert.Equal(t, 2, b.accepts)
	assert.Equal(t, 2, b.performs)
	state, name := u.State()
	assert.Equal(t, upload.StateMethodSelected, state)
	assert.Equal(t, "b", name)
}

func TestSetCapsResetsSelection(t *testing.T) {
	a := &fakeMethod{name: "a", accept: reject}
	b := &fakeMethod{name: "b"}
	u := newSession(t, a, b)
	buf := buffer.NewWrapped(make([]byte, 64))
	uploadOK(t, u, buf).Unref()
	created := b.news

	require.True(t, u.SetCaps(rgbaIn.Copy(), rgbaOut.Copy()))
	require.True(t, u.SetCaps(rgbaIn.Copy(), rgbaOut.Copy()))
	state, name := u.State()
	assert.Equal(t, upload.StateMethodSelected, state, "same formats keep the method")
	assert.Equal(t, "b", name)
	assert.Equal(t, 0, b.frees)
	uploadOK(t, u, buf).Unref()
	assert.Equal(t, created, b.news, "the selected method is not instantiated again")

	bigger := caps.MustParse("video/x-raw, format=RGBA, width=8, height=8")
	require.True(t, u.SetCaps(bigger, rgbaOut))
	state, _ = u.State()
	assert.Equal(t, upload.StateUnconfigured, state)
	assert.Equal(t, 1, b.frees)

	uploadOK(t, u, buffer.NewWrapped(make([]byte, 256))).Unref()
	assert.Equal(t, 2, a.accepts, "search restarts from the first method")
	assert.Equal(t, created+1, b.news)
}

func TestRejectingMethodsAreNotPerformed(t *testing.T) {
	a := &fakeMethod{name: "a", accept: reject}
	b := &fakeMethod{name: "b", accept: reject}
	c := &fakeMethod{name: "c"}
	u := newSession(t, a, b, c)

	uploadOK(t, u, buffer.NewWrapped(make([]byte, 64))).Unref()

	assert.Equal(t, 1, a.accepts)
	assert.Equal(t, 1, b.accepts)
	assert.Equal(t, 0, a.performs)
	assert.Equal(t, 0, b.performs)
	assert.Equal(t, 1, c.performs)
	state, name := u.State()
	assert.Equal(t, upload.StateMethodSelected, state)
	assert.Equal(t, "c", name)
}

func TestSetCapsRejectsInvalidFormats(t *testing.T) {
	u := upload.New(softContext(t))
	defer u.Close()

	assert.False(t, u.SetCaps(nil, rgbaOut))
	assert.False(t, u.SetCaps(caps.MustParse("video/x-raw, format={ RGBA, BGRA }, width=4, height=4"), rgbaOut))
	assert.False(t, u.SetCaps(caps.MustParse("video/x-raw, format=RGBA"), rgbaOut))
	in, out := u.Caps()
	assert.Nil(t, in)
	assert.Nil(t, out)
}

func TestUnsharedContextFallsBack(t *testing.T) {
	a := &fakeMethod{name: "a", flags: upload.MethodFlagCanShareContext, perform: returning(upload.ReturnUnsharedContext)}
	b := &fakeMethod{name: "b"}
	raw := &fakeMethod{name: "raw", flags: upload.MethodFlagContextFallback}
	var events []upload.MethodEvent
	u := upload.New(softContext(t),
		upload.WithRegistry(upload.NewRegistry(a, b, raw)),
		upload.WithMethodListener(func(e upload.MethodEvent) { events = append(events, e) }),
	)
	defer u.Close()
	require.True(t, u.SetCaps(rgbaIn, rgbaOut))

	uploadOK(t, u, buffer.NewWrapped(make([]byte, 64))).Unref()
	assert.Equal(t, 1, a.performs)
	assert.Equal(t, 1, a.frees)
	assert.Equal(t, 0, b.accepts, "the fallback skips the methods in between")
	assert.Equal(t, 1, raw.performs)

	_, name := u.State()
	assert.Equal(t, "raw", name)
	require.Len(t, events, 2)
	assert.Equal(t, "unshared-context", events[1].Reason)
	assert.Equal(t, 2, events[1].Index)
}

func TestUnsharedContextInFallbackIsAnError(t *testing.T) {
	raw := &fakeMethod{name: "raw", flags: upload.MethodFlagContextFallback, perform: returning(upload.ReturnUnsharedContext)}
	u := newSession(t, raw)

	out, ret := u.PerformWithBuffer(buffer.NewWrapped(make([]byte, 64)))
	assert.Nil(t, out)
	assert.Equal(t, upload.ReturnError, ret)
	assert.Equal(t, 1, raw.performs)
}

func TestFailureMovesToNextMethod(t *testing.T) {
	a := &fakeMethod{name: "a", perform: returning(upload.ReturnError)}
	b := &fakeMethod{name: "b", perform: returning(upload.ReturnReconfigure)}
	c := &fakeMethod{name: "c"}
	u := newSession(t, a, b, c)

	uploadOK(t, u, buffer.NewWrapped(make([]byte, 64))).Unref()
	assert.Equal(t, 1, a.frees)
	assert.Equal(t, 1, b.frees)
	assert.Equal(t, 1, c.performs)

	uploadOK(t, u, buffer.NewWrapped(make([]byte, 64))).Unref()
	assert.Equal(t, 1, a.performs, "failed methods are not retried")
	assert.Equal(t, 2, c.performs)
}

func TestExhaustionKeepsFormats(t *testing.T) {
	accept := false
	a := &fakeMethod{name: "a", accept: func(*buffer.Buffer) bool { return accept }}
	b := &fakeMethod{name: "b", accept: reject}
	u := newSession(t, a, b)

	out, ret := u.PerformWithBuffer(buffer.NewWrapped(make([]byte, 64)))
	assert.Nil(t, out)
	assert.Equal(t, upload.ReturnError, ret)
	state, name := u.State()
	assert.Equal(t, upload.StateExhausted, state)
	assert.Empty(t, name)
	in, _ := u.Caps()
	assert.True(t, in.IsEqual(rgbaIn))

	accept = true
	uploadOK(t, u, buffer.NewWrapped(make([]byte, 64))).Unref()
	assert.Equal(t, 2, a.accepts)
	assert.Equal(t, 1, b.accepts)
}

func TestPerformNeedsCapsAndBuffer(t *testing.T) {
	u := upload.New(softContext(t), upload.WithRegistry(upload.NewRegistry(&fakeMethod{name: "a"})))
	defer u.Close()

	_, ret := u.PerformWithBuffer(buffer.NewWrapped(make([]byte, 64)))
	assert.Equal(t, upload.ReturnError, ret)

	require.True(t, u.SetCaps(rgbaIn, rgbaOut))
	_, ret = u.PerformWithBuffer(nil)
	assert.Equal(t, upload.ReturnError, ret)
}

func TestNewBufferCarriesInputMetadata(t *testing.T) {
	a := &fakeMethod{name: "a", perform: func(*buffer.Buffer) (*buffer.Buffer, upload.Return) {
		return buffer.New(), upload.ReturnDone
	}}
	u := newSession(t, a)

	in := buffer.NewWrapped(make([]byte, 64))
	in.Flags = buffer.FlagLive
	in.PTS = 3 * time.Second
	in.Duration = 40 * time.Millisecond

	out := uploadOK(t, u, in)
	defer out.Unref()
	assert.NotSame(t, in, out)
	assert.Equal(t, buffer.FlagLive, out.Flags)
	assert.Equal(t, in.PTS, out.PTS)
	assert.Equal(t, in.Duration, out.Duration)
	assert.Equal(t, 1, in.RefCount(), "the input is not consumed")
}

func TestCloseFreesState(t *testing.T) {
	a := &fakeMethod{name: "a"}
	u := upload.New(softContext(t), upload.WithRegistry(upload.NewRegistry(a)))
	require.True(t, u.SetCaps(rgbaIn, rgbaOut))
	uploadOK(t, u, buffer.NewWrapped(make([]byte, 64))).Unref()

	u.Close()
	assert.Equal(t, 2, a.frees, "the selected state and the proposer")
	state, _ := u.State()
	assert.Equal(t, upload.StateUnconfigured, state)
}
