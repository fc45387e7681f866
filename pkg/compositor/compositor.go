// Package compositor rebuilds complete animation frames from the per-frame
// deltas produced by a proto.Source.
//
// A Compositor is not safe for concurrent use. It is meant to be owned by a
// single decode goroutine.
package compositor

import (
	"image"

	"github.com/inhies/go-bytesize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"animscreen/pkg/bitmap"
	"animscreen/pkg/proto"
)

var (
	ErrAllocation   = errors.New("allocation failure")
	ErrSourceDecode = errors.New("source decode failure")
)

type Option func(c *Compositor)

func WithLogger(log *zap.Logger) Option {
	return func(c *Compositor) {
		c.log = log
	}
}

// WithMaxBytes bounds the size of a single frame buffer. Zero disables the check.
func WithMaxBytes(max int64) Option {
	return func(c *Compositor) {
		c.maxBytes = max
	}
}

func New(opts ...Option) *Compositor {
	c := &Compositor{
		log:      zap.NewNop(),
		maxBytes: bitmap.DefaultMaxBytes,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type Compositor struct {
	log      *zap.Logger
	maxBytes int64

	// retained is the backdrop for the next frame that depends on an earlier one.
	retained *image.RGBA
	// clearRect is erased from the backdrop before the next frame is drawn.
	clearRect image.Rectangle
	hasClear  bool
}

// DecodeFrame returns the fully composited pixels of frame index and updates
// the retained state for the frame after it. The returned buffer must not be
// modified; it may be kept as the backdrop of later frames.
func (c *Compositor) DecodeFrame(src proto.Source, index int) (*image.RGBA, error) {
	log := c.log.With(zap.Int("frame", index))

	info := bitmap.N32Premul(src.Info())
	buf, size, err := bitmap.Alloc(info, c.maxBytes)
	if err != nil {
		err = errors.Wrapf(ErrAllocation, "Failed to allocate memory for bitmap of size %dB (%s)",
			size, bytesize.New(float64(size)))
		log.With(zap.Int64("size", size)).Error(err.Error())
		return nil, err
	}

	frame := src.FrameInfo(index)
	required := frame.RequiredFrame

	if required != proto.NoFrame {
		if c.retained == nil {
			log.With(zap.Int("required", required)).
				Debug("required frame not cached, using blank slate")
		} else {
			bitmap.CopyPixels(buf, c.retained)
			if c.hasClear {
				bitmap.Erase(buf, c.clearRect)
			}
		}
	}

	if !src.GetPixels(info, buf.Pix, buf.Stride, index, required) {
		err := errors.Wrapf(ErrSourceDecode, "Could not getPixels for frame %d", index)
		log.Error(err.Error())
		return nil, err
	}

	if frame.DisposalMethod != proto.DisposeRestorePrevious || c.retained == nil {
		c.retained = buf
	}

	if frame.DisposalMethod == proto.DisposeRestoreBackground {
		c.clearRect, c.hasClear = info.Bounds(), true
		if frame.HasDisposalRect {
			c.clearRect = frame.DisposalRect
		}
	} else {
		c.clearRect, c.hasClear = image.Rectangle{}, false
	}

	log.With(
		zap.Stringer("disposal", frame.DisposalMethod),
		zap.Int("required", required),
	).Debug("composited")

	return buf, nil
}

// Retained returns the current backdrop, or nil before the first frame.
func (c *Compositor) Retained() *image.RGBA {
	return c.retained
}

// PendingClear returns the rectangle that will be erased from the backdrop of
// the next dependent frame.
func (c *Compositor) PendingClear() (image.Rectangle, bool) {
	return c.clearRect, c.hasClear
}

// Reset drops the retained frame and any pending clear.
func (c *Compositor) Reset() {
	c.retained = nil
	c.clearRect, c.hasClear = image.Rectangle{}, false
}
