package bitmap

import (
	"image"
	"image/color"
)

// NewRGB565 returns a zeroed RGB565 image with bounds r.
func NewRGB565(r image.Rectangle) *RGB565 {
	return &RGB565{
		pixels: make([]byte, 2*r.Dx()*r.Dy()),
		stride: 2 * r.Dx(),
		bounds: r,
	}
}

// RGB565 is the native pixel layout of small TFT screens: two little endian
// bytes per pixel, no alpha. It implements draw.Image.
type RGB565 struct {
	pixels []byte
	stride int
	bounds image.Rectangle
}

func (d *RGB565) Bounds() image.Rectangle {
	return d.bounds
}

func (d *RGB565) ColorModel() color.Model {
	return rgb565Model
}

// Pix returns the raw little endian pixel data.
func (d *RGB565) Pix() []byte {
	return d.pixels
}

func (d *RGB565) Stride() int {
	return d.stride
}

func (d *RGB565) offset(x, y int) int {
	return (y-d.bounds.Min.Y)*d.stride + 2*(x-d.bounds.Min.X)
}

func (d *RGB565) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(d.bounds)) {
		return rgb565(0)
	}
	i := d.offset(x, y)
	return rgb565(d.pixels[i+1])<<8 | rgb565(d.pixels[i])
}

func (d *RGB565) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(d.bounds)) {
		return
	}
	r, g, b, _ := c.RGBA()
	d.put(d.offset(x, y), toRGB565(r, g, b))
}

func (d *RGB565) put(i int, c rgb565) {
	d.pixels[i+1] = byte(c >> 8)
	d.pixels[i] = byte(c & 0xFF)
}

var rgb565Model = color.ModelFunc(func(c color.Color) color.Color {
	r, g, b, _ := c.RGBA()
	return toRGB565(r, g, b)
})

// toRGB565 keeps the top 5, 6 and 5 bits of the 16 bit channels. Premultiplied
// input composites over black.
func toRGB565(r, g, b uint32) rgb565 {
	// RRRRRGGGGGGBBBBB
	return rgb565((r & 0xF800) +
		((g & 0xFC00) >> 5) +
		((b & 0xF800) >> 11))
}

type rgb565 uint16

func (c rgb565) RGBA() (r, g, b, a uint32) {
	// Replicate the short bit patterns so that all-ones maps to 0xFFFF.
	rBits := uint32(c & 0xF800)
	gBits := uint32(c & 0x7E0)
	bBits := uint32(c & 0x1F)
	r = rBits | rBits>>5 | rBits>>10 | rBits>>15
	g = gBits<<5 | gBits>>1 | gBits>>7
	b = bBits<<11 | bBits<<6 | bBits<<1 | bBits>>4
	a = 0xFFFF
	return
}
