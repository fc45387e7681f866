package proto

import (
	"image"
)

// Display is a screen that frames are presented on.
type Display interface {
	Startup() error
	Shutdown() error

	Size() image.Point
	DrawBitmap(posX uint16, posY uint16, image image.Image) error
}
