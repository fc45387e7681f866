package bitmap

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"animscreen/pkg/proto"
)

// DefaultMaxBytes bounds a single frame buffer allocation.
const DefaultMaxBytes int64 = 512 << 20

var ErrTooLarge = errors.New("bitmap too large")

// N32Premul returns info converted to the frame buffer format: 32-bit RGBA with
// premultiplied alpha. Straight alpha is promoted to premultiplied, opaque stays
// opaque.
func N32Premul(info proto.ImageInfo) proto.ImageInfo {
	info = info.WithColorType(proto.ColorN32)
	if info.AlphaType == proto.AlphaUnpremul || info.AlphaType == proto.AlphaUnknown {
		info = info.WithAlphaType(proto.AlphaPremul)
	}
	return info
}

// MinByteSize is the number of bytes needed to hold the pixels described by
// info, or -1 if it does not fit in an int64.
func MinByteSize(info proto.ImageInfo) int64 {
	if info.Width < 0 || info.Height < 0 {
		return -1
	}
	bpp := int64(info.BytesPerPixel())
	if bpp == 0 {
		return -1
	}
	w, h := int64(info.Width), int64(info.Height)
	if w != 0 && h > math.MaxInt64/w/bpp {
		return -1
	}
	return w * h * bpp
}

// Alloc allocates a zeroed N32 buffer for info. The returned size is the byte
// count that was requested, also on failure.
func Alloc(info proto.ImageInfo, maxBytes int64) (img *image.RGBA, size int64, err error) {
	if info.ColorType != proto.ColorN32 {
		return nil, 0, errors.Errorf("unsupported color type %d", info.ColorType)
	}

	size = MinByteSize(info)
	if size < 0 || (maxBytes > 0 && size > maxBytes) {
		return nil, size, ErrTooLarge
	}

	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = errors.Errorf("allocation panicked: %v", r)
		}
	}()

	return image.NewRGBA(info.Bounds()), size, nil
}

// CopyPixels overwrites dst with src where they overlap.
func CopyPixels(dst, src *image.RGBA) {
	if dst.Rect == src.Rect && dst.Stride == src.Stride {
		copy(dst.Pix, src.Pix)
		return
	}
	draw.Draw(dst, dst.Rect, src, dst.Rect.Min, draw.Src)
}

// Erase sets every pixel of img inside r to transparent black.
func Erase(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Rect)
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.Transparent, image.Point{}, draw.Src)
}

// Clone returns a deep copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	dst := &image.RGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(dst.Pix, img.Pix)
	return dst
}

// Premultiplied converts src to an RGBA image. Straight alpha sources such as
// *image.NRGBA are premultiplied on the way.
func Premultiplied(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
