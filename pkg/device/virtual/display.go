// Package virtual is an in-memory display. It keeps what was drawn on it in
// the RGB565 layout of the real screens, and can stand in as a native
// rendering backend for the frame uploader.
package virtual

import (
	"image"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	"animscreen/pkg/bitmap"
)

const (
	DefaultWidth  = 480
	DefaultHeight = 320
)

type Option func(d *Display)

func WithSize(width, height int) Option {
	return func(d *Display) {
		d.size = image.Pt(width, height)
	}
}

// WithNative makes the display act as the active rendering backend.
func WithNative(native bool) Option {
	return func(d *Display) {
		d.native.Store(native)
	}
}

func New(logger *zap.Logger, opts ...Option) *Display {
	d := &Display{
		l:    logger,
		size: image.Pt(DefaultWidth, DefaultHeight),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.canvas = bitmap.NewRGB565(image.Rectangle{Max: d.size})
	return d
}

type Display struct {
	l      *zap.Logger
	size   image.Point
	native atomic.Bool

	mu      sync.Mutex
	canvas  *bitmap.RGB565
	running bool
	draws   int
}

func (d *Display) Startup() error {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	d.l.Info("startup")
	return nil
}

func (d *Display) Shutdown() error {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()

	d.l.Info("shutdown")
	return nil
}

func (d *Display) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Display) Size() image.Point {
	return d.size
}

// DrawBitmap paints img with its top left corner at (posX, posY). Pixels
// outside the screen are clipped.
func (d *Display) DrawBitmap(posX uint16, posY uint16, img image.Image) error {
	b := img.Bounds()
	at := image.Pt(int(posX), int(posY))

	d.mu.Lock()
	draw.Draw(d.canvas, image.Rectangle{Min: at, Max: at.Add(b.Size())}, img, b.Min, draw.Src)
	d.draws++
	d.mu.Unlock()

	d.l.With(
		zap.Uint16("x", posX),
		zap.Uint16("y", posY),
		zap.Int("w", b.Dx()),
		zap.Int("h", b.Dy()),
	).Debug("draw-bitmap")
	return nil
}

// Draws returns the number of DrawBitmap calls so far.
func (d *Display) Draws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

// Screen returns a copy of the screen contents.
func (d *Display) Screen() *bitmap.RGB565 {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := bitmap.NewRGB565(d.canvas.Bounds())
	copy(s.Pix(), d.canvas.Pix())
	return s
}
