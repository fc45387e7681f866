package uploader

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/xid"

	"animscreen/pkg/bitmap"
)

// Image is an opaque renderer image.
type Image interface {
	ID() xid.ID
	// Kind is the strategy that produced the image.
	Kind() Strategy
	Bounds() image.Rectangle
	// Snapshot returns the pixels on the CPU, reading them back if needed.
	Snapshot() (image.Image, error)
}

// NewRasterImage wraps a private copy of pix.
func NewRasterImage(pix *image.RGBA) *RasterImage {
	return &RasterImage{id: xid.New(), pix: bitmap.Clone(pix)}
}

type RasterImage struct {
	id  xid.ID
	pix *image.RGBA
}

func (r *RasterImage) ID() xid.ID {
	return r.id
}

func (r *RasterImage) Kind() Strategy {
	return StrategyRaster
}

func (r *RasterImage) Bounds() image.Rectangle {
	return r.pix.Rect
}

func (r *RasterImage) Snapshot() (image.Image, error) {
	return r.pix, nil
}

var ErrTextureReleased = errors.New("texture released")

// NewSoftwareContext returns a ResourceContext that keeps textures in memory.
// It stands in for a GPU resource context where none is present.
func NewSoftwareContext() *SoftwareContext {
	return &SoftwareContext{
		available: true,
		textures:  make(map[xid.ID]*image.RGBA),
	}
}

type SoftwareContext struct {
	mu        sync.Mutex
	available bool
	textures  map[xid.ID]*image.RGBA
}

func (c *SoftwareContext) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available
}

// SetAvailable simulates losing or regaining the context.
func (c *SoftwareContext) SetAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.available = available
}

func (c *SoftwareContext) UploadTexture(pix *image.RGBA) (Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.available {
		return nil, errors.New("resource context lost")
	}

	t := &TextureImage{id: xid.New(), bounds: pix.Rect, ctx: c}
	c.textures[t.id] = bitmap.Clone(pix)
	return t, nil
}

// Textures returns the number of live textures.
func (c *SoftwareContext) Textures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.textures)
}

func (c *SoftwareContext) read(id xid.ID) (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pix, ok := c.textures[id]
	if !ok {
		return nil, ErrTextureReleased
	}
	return pix, nil
}

func (c *SoftwareContext) release(id xid.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.textures, id)
}

type TextureImage struct {
	id     xid.ID
	bounds image.Rectangle
	ctx    *SoftwareContext
}

func (t *TextureImage) ID() xid.ID {
	return t.id
}

func (t *TextureImage) Kind() Strategy {
	return StrategyCrossContext
}

func (t *TextureImage) Bounds() image.Rectangle {
	return t.bounds
}

func (t *TextureImage) Snapshot() (image.Image, error) {
	return t.ctx.read(t.id)
}

// Release frees the texture. Later snapshots fail with ErrTextureReleased.
func (t *TextureImage) Release() {
	t.ctx.release(t.id)
}
