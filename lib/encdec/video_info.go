package encdec

import (
	"errors"
	"fmt"

	"github.com/fosdem/glupload/lib/caps"
)

var ErrInvalidInfo = errors.New("invalid video info")

type MultiviewMode int

const (
	MultiviewMono MultiviewMode = iota
	MultiviewSideBySide
	MultiviewTopBottom
	// MultiviewSeparated carries each view in its own set of memories.
	MultiviewSeparated
)

var multiviewNames = map[MultiviewMode]string{
	MultiviewMono:       "mono",
	MultiviewSideBySide: "side-by-side",
	MultiviewTopBottom:  "top-bottom",
	MultiviewSeparated:  "separated",
}

func ParseMultiviewMode(s string) (MultiviewMode, error) {
	if s == "" {
		return MultiviewMono, nil
	}
	for m, name := range multiviewNames {
		if name == s {
			return m, nil
		}
	}
	return MultiviewMono, fmt.Errorf("%w: unknown multiview mode %q", ErrInvalidInfo, s)
}

func (m MultiviewMode) String() string {
	return multiviewNames[m]
}

// VideoInfo is the memory layout implied by a fixed video format.
type VideoInfo struct {
	Format        VideoFormat
	Width         int
	Height        int
	Views         int
	MultiviewMode MultiviewMode
	Framerate     caps.Fraction

	Offset [MaxPlanes]int
	Stride [MaxPlanes]int
	// Size of one view in bytes
	Size int
}

func NewVideoInfo(format VideoFormat, width, height int) (*VideoInfo, error) {
	if _, ok := formats[format]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: size %dx%d", ErrInvalidInfo, width, height)
	}
	info := &VideoInfo{
		Format: format,
		Width:  width,
		Height: height,
		Views:  1,
	}
	for i := range format.NumPlanes() {
		info.Stride[i] = roundUp4(info.PlaneWidth(i) * format.PixelStride(i))
	}
	info.RecalculateOffsets()
	return info, nil
}

// InfoFromCaps builds the layout of the first structure of c, which must
// name a format, a width and a height.
func InfoFromCaps(c *caps.Caps) (*VideoInfo, error) {
	if c.IsEmpty() {
		return nil, fmt.Errorf("%w: empty caps", ErrInvalidInfo)
	}
	s := c.Structure(0)
	if s.Name != caps.MediaTypeVideoRaw {
		return nil, fmt.Errorf("%w: media type %s", ErrInvalidInfo, s.Name)
	}
	formatName, ok := s.GetString("format")
	if !ok {
		return nil, fmt.Errorf("%w: no fixed format in %s", ErrInvalidInfo, s)
	}
	format, err := ParseVideoFormat(formatName)
	if err != nil {
		return nil, err
	}
	width, okW := s.GetInt("width")
	height, okH := s.GetInt("height")
	if !okW || !okH {
		return nil, fmt.Errorf("%w: no fixed size in %s", ErrInvalidInfo, s)
	}

	info, err := NewVideoInfo(format, width, height)
	if err != nil {
		return nil, err
	}
	if views, ok := s.GetInt("views"); ok {
		if views < 1 {
			return nil, fmt.Errorf("%w: %d views", ErrInvalidInfo, views)
		}
		info.Views = views
	}
	if mode, ok := s.GetString("multiview-mode"); ok {
		info.MultiviewMode, err = ParseMultiviewMode(mode)
		if err != nil {
			return nil, err
		}
	}
	if fps, ok := s.GetFraction("framerate"); ok {
		info.Framerate = fps
	}
	return info, nil
}

// Caps describes info as fixed system memory caps.
func (info *VideoInfo) Caps() *caps.Caps {
	s := caps.NewStructure(caps.MediaTypeVideoRaw,
		"format", info.Format.String(),
		"width", info.Width,
		"height", info.Height,
	)
	if info.Framerate.Den != 0 {
		s.Set("framerate", info.Framerate)
	}
	if info.Views > 1 {
		s.Set("views", info.Views)
		s.Set("multiview-mode", info.MultiviewMode.String())
	}
	return caps.FromStructure(s, nil)
}

func (info *VideoInfo) NumPlanes() int {
	return info.Format.NumPlanes()
}

func (info *VideoInfo) PlaneWidth(plane int) int {
	sub := formats[info.Format].planes[plane].wSub
	return (info.Width + (1 << sub) - 1) >> sub
}

func (info *VideoInfo) PlaneHeight(plane int) int {
	sub := formats[info.Format].planes[plane].hSub
	return (info.Height + (1 << sub) - 1) >> sub
}

// PlaneDataSize is the number of bytes a texture for the plane needs.
func (info *VideoInfo) PlaneDataSize(plane int) int {
	return info.Stride[plane] * info.PlaneHeight(plane)
}

// RecalculateOffsets lays the planes out back to back and updates Size.
func (info *VideoInfo) RecalculateOffsets() {
	info.Size = 0
	for i := range info.NumPlanes() {
		info.Offset[i] = info.Size
		info.Size += info.PlaneDataSize(i)
	}
}

// ExpectedMemories is the number of memories a buffer of this format
// carries when every plane of every view lives in its own memory.
func (info *VideoInfo) ExpectedMemories() int {
	n := info.NumPlanes()
	if info.MultiviewMode == MultiviewSeparated {
		n *= info.Views
	}
	return n
}

func (info *VideoInfo) String() string {
	return fmt.Sprintf("%s %dx%d (%d planes, %d bytes)", info.Format, info.Width, info.Height, info.NumPlanes(), info.Size)
}

func roundUp4(n int) int {
	return (n + 3) &^ 3
}
