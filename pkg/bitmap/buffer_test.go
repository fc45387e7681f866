package bitmap

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animscreen/pkg/proto"
)

func TestN32Premul(t *testing.T) {
	info := proto.ImageInfo{Width: 2, Height: 3, ColorType: proto.ColorGray8, AlphaType: proto.AlphaUnpremul}
	got := N32Premul(info)
	assert.Equal(t, proto.ColorN32, got.ColorType)
	assert.Equal(t, proto.AlphaPremul, got.AlphaType)

	opaque := N32Premul(info.WithAlphaType(proto.AlphaOpaque))
	assert.Equal(t, proto.AlphaOpaque, opaque.AlphaType)
}

func TestAlloc(t *testing.T) {
	info := proto.ImageInfo{Width: 4, Height: 2, ColorType: proto.ColorN32, AlphaType: proto.AlphaPremul}

	img, size, err := Alloc(info, DefaultMaxBytes)
	require.NoError(t, err)
	assert.EqualValues(t, 32, size)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Rect)
	assert.Len(t, img.Pix, 32)

	_, size, err = Alloc(info, 16)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.EqualValues(t, 32, size)

	huge := info
	huge.Width, huge.Height = math.MaxInt32, math.MaxInt32
	_, _, err = Alloc(huge, 0)
	assert.Error(t, err)

	_, _, err = Alloc(info.WithColorType(proto.ColorRGB565), 0)
	assert.Error(t, err)
}

func TestErase(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}

	Erase(img, image.Rect(1, 1, 3, 10))

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
			if x >= 1 && x < 3 && y >= 1 {
				want = color.RGBA{}
			}
			assert.Equal(t, want, img.RGBAAt(x, y), "pixel %d,%d", x, y)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0] = 7
	c := Clone(img)
	img.Pix[0] = 9
	assert.EqualValues(t, 7, c.Pix[0])

	dst := image.NewRGBA(image.Rect(0, 0, 1, 1))
	CopyPixels(dst, c)
	assert.Equal(t, c.Pix, dst.Pix)
}

func TestPremultiplied(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0xFF, A: 0x80})

	got := Premultiplied(src)
	assert.Equal(t, color.RGBA{R: 0x80, A: 0x80}, got.RGBAAt(0, 0))
}

func TestEncode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.SetRGBA(0, 0, color.RGBA{R: 0xFF, A: 0xFF})
	src.SetRGBA(1, 0, color.RGBA{B: 0xFF, A: 0xFF})

	d := Encode(src)
	assert.Equal(t, []byte{0x00, 0xF8, 0x1F, 0x00}, d.Pix())

	r, g, b, a := d.At(0, 0).RGBA()
	assert.Equal(t, [4]uint32{0xFFFF, 0, 0, 0xFFFF}, [4]uint32{r, g, b, a})

	gen := Encode(src.SubImage(image.Rect(1, 0, 2, 1)))
	assert.Equal(t, []byte{0x1F, 0x00}, gen.Pix())
}
