package mixer

import (
	"image"

	"animscreen/pkg/bitmap"
)

type Write struct {
	At  image.Point
	Img image.Image
}

type Image interface {
	image.Image
	SubImage(image.Rectangle) image.Image
}

type Effect interface {
	Name() string
	Process(img Image) (<-chan Write, error)
}

// Sub returns img as an Image, copying it if it cannot make sub-images.
// Sub-images share the origin of img.
func Sub(img image.Image) Image {
	if s, ok := img.(Image); ok {
		return s
	}
	return bitmap.Premultiplied(img)
}
