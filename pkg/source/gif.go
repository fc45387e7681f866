package source

import (
	"image"
	"image/color"
	"image/gif"
	"io"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"animscreen/pkg/proto"
)

// GIF disposal values as stored in the graphic control extension.
const (
	gifDisposalUnspecified = 0
	gifDisposalNone        = gif.DisposalNone
	gifDisposalBackground  = gif.DisposalBackground
	gifDisposalPrevious    = gif.DisposalPrevious
)

// GIF is a proto.Source over a decoded animated GIF. GetPixels only draws the
// frame's own sub-image; frames depend on one another through RequiredFrame.
type GIF struct {
	g        *gif.GIF
	bounds   image.Rectangle
	required []int
}

// DecodeGIF reads a complete GIF from r.
func DecodeGIF(r io.Reader) (*GIF, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode gif")
	}
	return NewGIF(g)
}

func NewGIF(g *gif.GIF) (*GIF, error) {
	if g.Delay != nil && len(g.Delay) != len(g.Image) {
		return nil, errors.Errorf("mismatched image count and delay count: %d != %d", len(g.Image), len(g.Delay))
	}
	if g.Disposal != nil && len(g.Disposal) != len(g.Image) {
		return nil, errors.Errorf("mismatched image count and disposal count: %d != %d", len(g.Image), len(g.Disposal))
	}

	s := &GIF{g: g, bounds: image.Rect(0, 0, g.Config.Width, g.Config.Height)}
	if s.bounds.Empty() {
		s.bounds = image.Rectangle{}
		for _, frame := range g.Image {
			s.bounds = s.bounds.Union(frame.Bounds())
		}
	}

	s.required = make([]int, len(g.Image))
	for i := range g.Image {
		s.required[i] = s.requiredFrame(i)
	}

	return s, nil
}

func (s *GIF) disposal(i int) byte {
	if s.g.Disposal == nil {
		return gifDisposalUnspecified
	}
	return s.g.Disposal[i]
}

// requiredFrame reports which earlier frame's output frame i is drawn over.
// It relies on the values of the frames before i.
func (s *GIF) requiredFrame(i int) int {
	if i == 0 {
		return proto.NoFrame
	}
	frame := s.g.Image[i]
	if frame.Bounds().Intersect(s.bounds) == s.bounds && opaque(frame) {
		return proto.NoFrame
	}

	prev := i - 1
	switch s.disposal(prev) {
	case gifDisposalPrevious:
		return s.required[prev]
	case gifDisposalBackground:
		if s.g.Image[prev].Bounds().Intersect(s.bounds) == s.bounds {
			return proto.NoFrame
		}
	}
	return prev
}

func opaque(p *image.Paletted) bool {
	var transparent [256]bool
	var hasAlpha bool
	for i, c := range p.Palette {
		if _, _, _, a := c.RGBA(); a != 0xFFFF {
			transparent[i] = true
			hasAlpha = true
		}
	}
	if !hasAlpha {
		return true
	}

	b := p.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := p.Pix[p.PixOffset(b.Min.X, y):][:b.Dx()]
		for _, idx := range row {
			if transparent[idx] {
				return false
			}
		}
	}
	return true
}

func (s *GIF) FrameCount() int {
	return len(s.g.Image)
}

// PlayCount maps the GIF loop count: 0 loops forever, -1 plays once and N
// plays N+1 times.
func (s *GIF) PlayCount() int {
	switch {
	case s.g.LoopCount == 0:
		return proto.InfinitePlayCount
	case s.g.LoopCount < 0:
		return 1
	}
	return s.g.LoopCount + 1
}

func (s *GIF) FrameInfo(index int) proto.FrameInfo {
	info := proto.FrameInfo{
		DisposalRect:    s.g.Image[index].Bounds(),
		HasDisposalRect: true,
		RequiredFrame:   s.required[index],
	}
	if s.g.Delay != nil {
		info.Duration = time.Duration(s.g.Delay[index]) * 10 * time.Millisecond
	}

	switch s.disposal(index) {
	case gifDisposalNone:
		info.DisposalMethod = proto.DisposeKeep
	case gifDisposalBackground:
		info.DisposalMethod = proto.DisposeRestoreBackground
	case gifDisposalPrevious:
		info.DisposalMethod = proto.DisposeRestorePrevious
	default:
		info.DisposalMethod = proto.DisposeNone
	}
	return info
}

func (s *GIF) Info() proto.ImageInfo {
	return proto.ImageInfo{
		Width:     s.bounds.Dx(),
		Height:    s.bounds.Dy(),
		ColorType: proto.ColorN32,
		AlphaType: proto.AlphaUnpremul,
	}
}

func (s *GIF) GetPixels(info proto.ImageInfo, pix []byte, stride int, index int, required int) bool {
	if index < 0 || index >= len(s.g.Image) {
		return false
	}
	dst, ok := wrap(info, pix, stride)
	if !ok {
		return false
	}

	frame := s.g.Image[index]
	draw.Draw(dst, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
	return true
}

// Background returns the colour a renderer may show behind transparent
// pixels, if the GIF declares one.
func (s *GIF) Background() (color.Color, bool) {
	pal, ok := s.g.Config.ColorModel.(color.Palette)
	if !ok || int(s.g.BackgroundIndex) >= len(pal) {
		return nil, false
	}
	return pal[s.g.BackgroundIndex], true
}

// wrap views pix as an RGBA image if it is large enough for info.
func wrap(info proto.ImageInfo, pix []byte, stride int) (*image.RGBA, bool) {
	if info.ColorType != proto.ColorN32 || stride < 4*info.Width {
		return nil, false
	}
	if info.Height > 0 && len(pix) < stride*(info.Height-1)+4*info.Width {
		return nil, false
	}
	return &image.RGBA{Pix: pix, Stride: stride, Rect: info.Bounds()}, true
}
