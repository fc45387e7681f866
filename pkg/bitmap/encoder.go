package bitmap

import (
	"image"
)

// Encode converts src into the RGB565 layout.
func Encode(src image.Image) *RGB565 {
	b := src.Bounds()
	d := NewRGB565(b)

	if rgba, ok := src.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				p := row[4*x : 4*x+4 : 4*x+4]
				c := toRGB565(uint32(p[0])*0x101, uint32(p[1])*0x101, uint32(p[2])*0x101)
				d.put(d.offset(b.Min.X+x, y), c)
			}
		}
		return d
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d.Set(x, y, src.At(x, y))
		}
	}

	return d
}
