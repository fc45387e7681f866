package virtual

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"animscreen/pkg/uploader"
)

func TestDisplayDraw(t *testing.T) {
	d := New(zaptest.NewLogger(t), WithSize(4, 4))
	assert.Equal(t, image.Pt(4, 4), d.Size())

	require.NoError(t, d.Startup())
	assert.True(t, d.Running())

	img := image.NewRGBA(image.Rect(10, 10, 12, 12))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	require.NoError(t, d.DrawBitmap(1, 2, img))
	require.NoError(t, d.DrawBitmap(3, 3, img))
	assert.Equal(t, 2, d.Draws())

	white := color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	screen := d.Screen()
	assert.Equal(t, white, color.RGBAModel.Convert(screen.At(1, 2)))
	assert.Equal(t, white, color.RGBAModel.Convert(screen.At(2, 3)))
	assert.Equal(t, white, color.RGBAModel.Convert(screen.At(3, 3)))
	assert.Equal(t, color.RGBA{A: 0xFF}, color.RGBAModel.Convert(screen.At(0, 0)))

	require.NoError(t, d.Shutdown())
	assert.False(t, d.Running())
}

func TestDisplayBackend(t *testing.T) {
	d := New(zaptest.NewLogger(t), WithSize(2, 2))
	assert.False(t, d.Active())

	rc := uploader.NewSoftwareContext()
	u := uploader.New(
		uploader.WithBackend(d),
		uploader.WithGPUSwitch(uploader.NewSwitch(false)),
		uploader.WithResourceContext(rc),
	)
	assert.Equal(t, uploader.StrategyCrossContext, u.Strategy())

	d.SetActive(true)
	assert.Equal(t, uploader.StrategyNative, u.Strategy())

	pix := image.NewRGBA(image.Rect(0, 0, 2, 2))
	pix.SetRGBA(1, 1, color.RGBA{R: 0xFF, A: 0xFF})

	img, err := u.Upload(pix)
	require.NoError(t, err)
	assert.Equal(t, uploader.StrategyNative, img.Kind())
	assert.Equal(t, pix.Rect, img.Bounds())
	assert.Equal(t, 0, rc.Textures())

	snap, err := img.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, color.RGBAModel.Convert(snap.At(1, 1)))
}
