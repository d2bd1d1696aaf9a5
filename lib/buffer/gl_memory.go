package buffer

import (
	"fmt"
	"sync"

	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/rendering"
)

// GLMemory is one plane of one view, held in a texture of a GPU context.
// A wrapping GLMemory starts out with host data that is only sent to the
// texture on Transfer.
type GLMemory struct {
	Context rendering.Context
	Target  rendering.TextureTarget
	Format  rendering.TextureFormat
	Info    encdec.VideoInfo
	Plane   int
	View    int

	mu      sync.Mutex
	texID   uint32
	wrapped []byte
	pending bool
	release func()
}

// NewGLMemory allocates the texture for one plane. It must run on the
// context's thread.
func NewGLMemory(ctx rendering.Context, target rendering.TextureTarget, info *encdec.VideoInfo, plane, view int) (*GLMemory, error) {
	m := newGLMemory(ctx, target, info, plane, view)
	id, err := ctx.GenTexture(target, m.Format, m.Width(), m.Height())
	if err != nil {
		return nil, fmt.Errorf("could not allocate texture for plane %d: %w", plane, err)
	}
	m.texID = id
	return m, nil
}

func newGLMemory(ctx rendering.Context, target rendering.TextureTarget, info *encdec.VideoInfo, plane, view int) *GLMemory {
	return &GLMemory{
		Context: ctx,
		Target:  target,
		Format:  rendering.TextureFormatForPlane(info, plane),
		Info:    *info,
		Plane:   plane,
		View:    view,
	}
}

// SetupBuffer appends one texture backed memory per plane and view of info
// to buf. It must run on the context's thread.
func SetupBuffer(ctx rendering.Context, target rendering.TextureTarget, info *encdec.VideoInfo, buf *Buffer) error {
	for i := range info.ExpectedMemories() {
		m, err := NewGLMemory(ctx, target, info, i%info.NumPlanes(), i/info.NumPlanes())
		if err != nil {
			return err
		}
		buf.AppendMemory(m)
	}
	return nil
}

// SetupWrapped creates memories that wrap host data, one per element of
// data. release runs once for every memory when it is freed.
func SetupWrapped(ctx rendering.Context, target rendering.TextureTarget, info *encdec.VideoInfo, data [][]byte, release func()) []*GLMemory {
	mems := make([]*GLMemory, len(data))
	for i, d := range data {
		m := newGLMemory(ctx, target, info, i%info.NumPlanes(), i/info.NumPlanes())
		m.wrapped = d
		m.pending = true
		m.release = release
		mems[i] = m
	}
	return mems
}

func IsGLMemory(m Memory) bool {
	_, ok := m.(*GLMemory)
	return ok
}

func (m *GLMemory) TextureID() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texID
}

func (m *GLMemory) Width() int {
	return m.Info.PlaneWidth(m.Plane)
}

func (m *GLMemory) Height() int {
	return m.Info.PlaneHeight(m.Plane)
}

// Offset is the byte offset of the plane in the layout the memory was
// created for.
func (m *GLMemory) Offset() int {
	return m.Info.Offset[m.Plane]
}

func (m *GLMemory) Size() int {
	return m.Info.PlaneDataSize(m.Plane)
}

// Wrapped returns the host data the memory was created from, if any.
func (m *GLMemory) Wrapped() []byte {
	return m.wrapped
}

// NeedsTransfer reports whether wrapped host data has not reached the
// texture yet.
func (m *GLMemory) NeedsTransfer() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// Transfer sends pending host data to the texture, allocating the texture
// first if needed. It dispatches onto the context's thread and must not be
// called from it.
func (m *GLMemory) Transfer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return nil
	}

	err := rendering.ErrContextClosed
	m.Context.ThreadAdd(func(ctx rendering.Context) {
		if m.texID == 0 {
			m.texID, err = ctx.GenTexture(m.Target, m.Format, m.Width(), m.Height())
			if err != nil {
				return
			}
		}
		err = ctx.TexSubImage(m.texID, m.Target, m.Format, m.Width(), m.Height(), m.Info.Stride[m.Plane], m.wrapped)
	})
	if err != nil {
		return fmt.Errorf("could not transfer plane %d: %w", m.Plane, err)
	}
	m.pending = false
	return nil
}

// TransferAll transfers every GL memory of buf, making the textures ready
// for drawing.
func TransferAll(buf *Buffer) error {
	for i := 0; i < buf.NumMemories(); i++ {
		if m, ok := buf.PeekMemory(i).(*GLMemory); ok {
			if err := m.Transfer(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Free deletes the texture and releases wrapped host data. It dispatches
// onto the context's thread when a texture exists.
func (m *GLMemory) Free() {
	m.mu.Lock()
	id, release := m.texID, m.release
	m.texID, m.release, m.wrapped = 0, nil, nil
	m.mu.Unlock()

	if id != 0 {
		m.Context.ThreadAdd(func(ctx rendering.Context) {
			ctx.DeleteTexture(id)
		})
	}
	if release != nil {
		release()
	}
}

// EGLImageMemory is an opaque platform image owned by a GPU context.
type EGLImageMemory struct {
	Context rendering.Context
	Image   uintptr
	size    int
	release func()
}

func NewEGLImageMemory(ctx rendering.Context, image uintptr, size int, release func()) *EGLImageMemory {
	return &EGLImageMemory{Context: ctx, Image: image, size: size, release: release}
}

func IsEGLImageMemory(m Memory) bool {
	_, ok := m.(*EGLImageMemory)
	return ok
}

func (m *EGLImageMemory) Size() int {
	return m.size
}

func (m *EGLImageMemory) Free() {
	if m.release != nil {
		m.release()
		m.release = nil
	}
}
