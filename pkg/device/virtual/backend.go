package virtual

import (
	"image"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"animscreen/pkg/bitmap"
	"animscreen/pkg/uploader"
)

func (d *Display) Name() string {
	return "virtual"
}

func (d *Display) Active() bool {
	return d.native.Load()
}

// SetActive switches the display in or out of the native backend role.
func (d *Display) SetActive(active bool) {
	d.native.Store(active)
	d.l.With(zap.Bool("active", active)).Info("set-native")
}

// NativeImage converts pix to the screen's pixel layout. Scaling to the
// screen is left to whoever draws the image.
func (d *Display) NativeImage(pix *image.RGBA) (uploader.Image, error) {
	return &Image{id: xid.New(), pix: bitmap.Encode(pix)}, nil
}

// Image is a frame already in the screen's RGB565 layout.
type Image struct {
	id  xid.ID
	pix *bitmap.RGB565
}

func (i *Image) ID() xid.ID {
	return i.id
}

func (i *Image) Kind() uploader.Strategy {
	return uploader.StrategyNative
}

func (i *Image) Bounds() image.Rectangle {
	return i.pix.Bounds()
}

func (i *Image) Snapshot() (image.Image, error) {
	return i.pix, nil
}
