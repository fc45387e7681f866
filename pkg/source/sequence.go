package source

import (
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"animscreen/pkg/proto"
)

// Frame is one entry of a Sequence. Image holds the pixels drawn by the frame
// in canvas coordinates; transparent pixels leave the backdrop visible.
type Frame struct {
	Image image.Image
	Info  proto.FrameInfo
}

// Sequence is an in-memory proto.Source.
type Sequence struct {
	Frames []Frame
	// Plays is the play count, proto.InfinitePlayCount to loop forever.
	Plays int
	// Canvas is the size of the animation. Empty means the bounds of the
	// first frame.
	Canvas image.Rectangle
}

// Still returns a one frame Sequence showing img.
func Still(img image.Image) *Sequence {
	return &Sequence{
		Frames: []Frame{{Image: img, Info: proto.FrameInfo{RequiredFrame: proto.NoFrame}}},
		Plays:  1,
	}
}

func (s *Sequence) Validate() error {
	for i, f := range s.Frames {
		if f.Image == nil {
			return errors.Errorf("frame %d has no image", i)
		}
		if r := f.Info.RequiredFrame; r != proto.NoFrame && (r < 0 || r >= i) {
			return errors.Errorf("frame %d requires frame %d", i, r)
		}
	}
	return nil
}

func (s *Sequence) FrameCount() int {
	return len(s.Frames)
}

func (s *Sequence) PlayCount() int {
	return s.Plays
}

func (s *Sequence) FrameInfo(index int) proto.FrameInfo {
	return s.Frames[index].Info
}

func (s *Sequence) canvas() image.Rectangle {
	if !s.Canvas.Empty() || len(s.Frames) == 0 {
		return s.Canvas
	}
	return s.Frames[0].Image.Bounds()
}

func (s *Sequence) Info() proto.ImageInfo {
	c := s.canvas()
	return proto.ImageInfo{
		Width:     c.Dx(),
		Height:    c.Dy(),
		ColorType: proto.ColorN32,
		AlphaType: proto.AlphaUnpremul,
	}
}

func (s *Sequence) GetPixels(info proto.ImageInfo, pix []byte, stride int, index int, required int) bool {
	if index < 0 || index >= len(s.Frames) {
		return false
	}
	dst, ok := wrap(info, pix, stride)
	if !ok {
		return false
	}

	src := s.Frames[index].Image
	origin := s.canvas().Min
	r := src.Bounds().Sub(origin)
	draw.Draw(dst, r, src, src.Bounds().Min, draw.Over)
	return true
}
