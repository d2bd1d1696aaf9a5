package buffer

import (
	"fmt"

	"github.com/fosdem/glupload/lib/encdec"
)

// VideoFrame is a buffer mapped for reading, with one data slice per plane
// and view.
type VideoFrame struct {
	Info   encdec.VideoInfo
	Data   [][]byte
	buffer *Buffer
}

// MapVideoFrame maps the host memories of buf according to info. The
// buffer either holds all planes in a single memory or one memory per plane
// and view. A VideoMeta on the buffer overrides the offsets and strides of
// info. The frame holds a reference to buf until Unmap.
func MapVideoFrame(info *encdec.VideoInfo, buf *Buffer) (*VideoFrame, error) {
	if buf == nil {
		return nil, fmt.Errorf("%w: no buffer", ErrNotMappable)
	}
	frame := &VideoFrame{Info: *info}
	nPlanes := info.NumPlanes()

	if meta := buf.VideoMeta; meta != nil {
		if len(meta.Offset) < nPlanes || len(meta.Stride) < nPlanes {
			return nil, fmt.Errorf("%w: video meta describes %d planes, format has %d", ErrLayoutMismatch, len(meta.Stride), nPlanes)
		}
		for i := range nPlanes {
			if meta.Offset[i] < 0 || meta.Stride[i] < 0 {
				return nil, fmt.Errorf("%w: plane %d has offset %d and stride %d", ErrLayoutMismatch, i, meta.Offset[i], meta.Stride[i])
			}
			frame.Info.Offset[i] = meta.Offset[i]
			frame.Info.Stride[i] = meta.Stride[i]
		}
	}

	mems := make([]*SystemMemory, buf.NumMemories())
	for i := range mems {
		sys, ok := buf.PeekMemory(i).(*SystemMemory)
		if !ok {
			return nil, fmt.Errorf("%w: memory %d is %T", ErrNotMappable, i, buf.PeekMemory(i))
		}
		mems[i] = sys
	}

	expected := info.ExpectedMemories()
	frame.Data = make([][]byte, expected)
	switch len(mems) {
	case 1:
		data := mems[0].Data
		viewSize := frame.Info.Size
		for i := range expected {
			plane := i % nPlanes
			start := (i/nPlanes)*viewSize + frame.Info.Offset[plane]
			end := start + frame.Info.PlaneDataSize(plane)
			if end > len(data) {
				return nil, fmt.Errorf("%w: plane %d needs bytes up to %d, memory has %d", ErrLayoutMismatch, plane, end, len(data))
			}
			frame.Data[i] = data[start:end]
		}
	case expected:
		for i, m := range mems {
			plane := i % nPlanes
			size := frame.Info.PlaneDataSize(plane)
			if size > len(m.Data) {
				return nil, fmt.Errorf("%w: memory %d has %d bytes, plane %d needs %d", ErrLayoutMismatch, i, len(m.Data), plane, size)
			}
			frame.Data[i] = m.Data[:size]
		}
	default:
		return nil, fmt.Errorf("%w: %d memories, expected 1 or %d", ErrLayoutMismatch, len(mems), expected)
	}

	frame.buffer = buf.Ref()
	return frame, nil
}

func (f *VideoFrame) Buffer() *Buffer {
	return f.buffer
}

func (f *VideoFrame) Unmap() {
	if f.buffer != nil {
		f.buffer.Unref()
		f.buffer = nil
	}
}
