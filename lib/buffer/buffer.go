// Package buffer holds frames as reference counted lists of memories. A
// memory is host bytes, a GPU texture or an opaque platform image.
package buffer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrNotMappable    = errors.New("memory cannot be mapped for reading")
	ErrLayoutMismatch = errors.New("buffer layout does not match video info")
)

// ClockTimeNone marks an unset timestamp.
const ClockTimeNone time.Duration = -1

type Flags uint32

const (
	FlagLive Flags = 1 << iota
	FlagDiscont
	FlagDeltaUnit
	FlagCorrupted
	FlagGap
)

type CopyFlags uint32

const (
	CopyBufferFlags CopyFlags = 1 << iota
	CopyTimestamps
)

// Memory is one segment of a buffer.
type Memory interface {
	Size() int
	// Free releases the memory. It is called exactly once, when the last
	// buffer holding the memory goes away.
	Free()
}

// VideoMeta overrides the plane layout implied by the negotiated format.
type VideoMeta struct {
	Offset []int
	Stride []int
}

type Buffer struct {
	Flags    Flags
	PTS      time.Duration
	DTS      time.Duration
	Duration time.Duration

	VideoMeta  *VideoMeta
	UploadMeta *TextureUploadMeta

	mu       sync.Mutex
	memories []Memory
	parents  []*Buffer
	refs     atomic.Int32
}

func New() *Buffer {
	b := &Buffer{
		PTS:      ClockTimeNone,
		DTS:      ClockTimeNone,
		Duration: ClockTimeNone,
	}
	b.refs.Store(1)
	return b
}

func NewWithMemories(mems ...Memory) *Buffer {
	b := New()
	for _, m := range mems {
		b.AppendMemory(m)
	}
	return b
}

// NewWrapped creates a buffer with one system memory holding data.
func NewWrapped(data []byte) *Buffer {
	return NewWithMemories(NewSystemMemory(data, nil))
}

func (b *Buffer) Ref() *Buffer {
	b.refs.Add(1)
	return b
}

// Unref drops a reference and frees the memories of the buffer once no
// references are left.
func (b *Buffer) Unref() {
	refs := b.refs.Add(-1)
	if refs < 0 {
		panic("Unref called on a buffer without references")
	}
	if refs > 0 {
		return
	}
	b.mu.Lock()
	mems, parents := b.memories, b.parents
	b.memories, b.parents = nil, nil
	b.mu.Unlock()

	for _, m := range mems {
		m.Free()
	}
	for _, p := range parents {
		p.Unref()
	}
	if b.UploadMeta != nil {
		b.UploadMeta.release()
	}
}

func (b *Buffer) RefCount() int {
	return int(b.refs.Load())
}

// AppendMemory transfers ownership of m to the buffer.
func (b *Buffer) AppendMemory(m Memory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memories = append(b.memories, m)
}

func (b *Buffer) NumMemories() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.memories)
}

// PeekMemory returns memory i without transferring ownership.
func (b *Buffer) PeekMemory(i int) Memory {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memories[i]
}

func (b *Buffer) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.memories {
		n += m.Size()
	}
	return n
}

// AddParent keeps parent alive for as long as b exists.
func (b *Buffer) AddParent(parent *Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parents = append(b.parents, parent.Ref())
}

// CopyInto copies the selected buffer-level metadata of src into dst.
func CopyInto(dst, src *Buffer, flags CopyFlags) {
	if flags&CopyBufferFlags != 0 {
		dst.Flags = src.Flags
	}
	if flags&CopyTimestamps != 0 {
		dst.PTS = src.PTS
		dst.DTS = src.DTS
		dst.Duration = src.Duration
	}
}

// SystemMemory is plain host memory.
type SystemMemory struct {
	Data    []byte
	release func()
}

// NewSystemMemory wraps data. release, if not nil, runs when the memory is
// freed.
func NewSystemMemory(data []byte, release func()) *SystemMemory {
	return &SystemMemory{Data: data, release: release}
}

func (m *SystemMemory) Size() int {
	return len(m.Data)
}

func (m *SystemMemory) Free() {
	if m.release != nil {
		m.release()
		m.release = nil
	}
}
