// Package mixer puts frames on a display, fitted to the screen and
// optionally split into tiles by an Effect.
package mixer

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"animscreen/pkg/proto"
)

type Option func(d *Drawer)

// WithEffect adds effects to pick from on every canvas. The first frame of a
// play uses one at random; later frames are drawn whole.
func WithEffect(e ...Effect) Option {
	return func(d *Drawer) {
		d.effs = append(d.effs, e...)
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Drawer) {
		d.log = log
	}
}

// WithFit selects how frames are fitted to the screen.
func WithFit(fit Fit) Option {
	return func(d *Drawer) {
		d.fit = fit
	}
}

// WithBackground sets the colour around frames that do not cover the
// screen. The default is black.
func WithBackground(c color.Color) Option {
	return func(d *Drawer) {
		d.background = c
	}
}

type Fit int

const (
	// FitFill scales and crops to cover the whole screen.
	FitFill Fit = iota
	// FitContain scales up or down to fit inside the screen, centred on the
	// background colour.
	FitContain
	// FitNone draws the frame as is at the top left corner.
	FitNone
)

func NewDrawer(dst proto.Display, opts ...Option) *Drawer {
	d := &Drawer{
		dev:        dst,
		log:        zap.NewNop(),
		background: color.Black,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

type Drawer struct {
	dev        proto.Display
	log        *zap.Logger
	effs       []Effect
	fit        Fit
	background color.Color
}

// Canvas draws img on the display. With transition set an effect may be used.
func (d *Drawer) Canvas(img image.Image, transition bool) error {
	fitted, at := d.fitted(img)

	if transition && len(d.effs) > 0 {
		eff := lo.Sample(d.effs)
		w, err := eff.Process(Sub(fitted))
		if err != nil {
			return err
		}

		d.log.With(zap.String("effect", eff.Name())).Debug("transition")
		for w2 := range w {
			p := at.Add(w2.At)
			if err := d.dev.DrawBitmap(uint16(p.X), uint16(p.Y), w2.Img); err != nil {
				// drain so the effect goroutine can exit
				for range w {
				}
				return err
			}
		}
		return nil
	}

	return d.dev.DrawBitmap(uint16(at.X), uint16(at.Y), fitted)
}

func (d *Drawer) fitted(img image.Image) (image.Image, image.Point) {
	size := d.dev.Size()
	b := img.Bounds()
	if size.X <= 0 || size.Y <= 0 || b.Empty() || b.Size() == size {
		return img, image.Point{}
	}

	switch d.fit {
	case FitFill:
		return imaging.Fill(img, size.X, size.Y, imaging.Center, imaging.Lanczos), image.Point{}
	case FitContain:
		scale := math.Min(float64(size.X)/float64(b.Dx()), float64(size.Y)/float64(b.Dy()))
		w := max(1, int(math.Round(float64(b.Dx())*scale)))
		h := max(1, int(math.Round(float64(b.Dy())*scale)))
		scaled := imaging.Resize(img, w, h, imaging.Lanczos)
		canvas := imaging.New(size.X, size.Y, d.background)
		return imaging.Paste(canvas, scaled, image.Pt((size.X-w)/2, (size.Y-h)/2)), image.Point{}
	}
	return img, image.Point{}
}
