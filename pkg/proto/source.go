package proto

import (
	"image"
	"time"
)

// InfinitePlayCount is returned by Source.PlayCount when the animation loops forever.
const InfinitePlayCount = -1

// NoFrame marks a frame that does not depend on any earlier frame.
const NoFrame = -1

type DisposalMethod int

const (
	// DisposeKeep leaves the frame in place as the backdrop of the next one.
	DisposeKeep DisposalMethod = iota
	// DisposeRestorePrevious restores what was on the canvas before the frame was drawn.
	DisposeRestorePrevious
	// DisposeRestoreBackground clears the frame's rectangle before the next frame.
	DisposeRestoreBackground
	// DisposeNone means the source did not specify a disposal.
	DisposeNone
)

func (d DisposalMethod) String() string {
	switch d {
	case DisposeKeep:
		return "keep"
	case DisposeRestorePrevious:
		return "restore-previous"
	case DisposeRestoreBackground:
		return "restore-background"
	case DisposeNone:
		return "none"
	}
	return "unknown"
}

type FrameInfo struct {
	Duration       time.Duration
	DisposalMethod DisposalMethod
	// DisposalRect is only meaningful when HasDisposalRect is set.
	DisposalRect    image.Rectangle
	HasDisposalRect bool
	// RequiredFrame is the index of the frame whose composited output this frame
	// is drawn over, or NoFrame.
	RequiredFrame int
}

type ColorType int

const (
	ColorUnknown ColorType = iota
	// ColorN32 is 8 bits per channel interleaved RGBA.
	ColorN32
	ColorRGB565
	ColorGray8
)

type AlphaType int

const (
	AlphaUnknown AlphaType = iota
	AlphaOpaque
	AlphaPremul
	AlphaUnpremul
)

type ImageInfo struct {
	Width     int
	Height    int
	ColorType ColorType
	AlphaType AlphaType
}

func (i ImageInfo) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.Width, i.Height)
}

func (i ImageInfo) WithColorType(ct ColorType) ImageInfo {
	i.ColorType = ct
	return i
}

func (i ImageInfo) WithAlphaType(at AlphaType) ImageInfo {
	i.AlphaType = at
	return i
}

// BytesPerPixel returns 0 for unknown color types.
func (i ImageInfo) BytesPerPixel() int {
	switch i.ColorType {
	case ColorN32:
		return 4
	case ColorRGB565:
		return 2
	case ColorGray8:
		return 1
	}
	return 0
}

// Source decodes individual frames of a multi-frame image. Only the frame's own
// delta is drawn by GetPixels; compositing over earlier frames is the caller's job.
type Source interface {
	FrameCount() int
	// PlayCount is the number of times the animation plays, or InfinitePlayCount.
	PlayCount() int
	FrameInfo(index int) FrameInfo
	// GetPixels draws frame index into pix, which holds rows of stride bytes in the
	// format described by info. required is the frame whose output pix already
	// contains, or NoFrame when pix is blank.
	GetPixels(info ImageInfo, pix []byte, stride int, index int, required int) bool
	Info() ImageInfo
}
