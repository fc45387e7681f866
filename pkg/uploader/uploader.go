// Package uploader turns composited frame buffers into renderer images.
//
// The upload strategy is chosen on every call from the current capability
// flags. Nothing about the previous decision is remembered, since GPU access
// can be revoked and restored at any time, for example while an application
// is in the background.
package uploader

import (
	"fmt"
	"image"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var ErrUpload = errors.New("upload failure")

type Strategy int

const (
	// StrategyRaster keeps the pixels on the CPU and defers the texture upload
	// to the first draw.
	StrategyRaster Strategy = iota
	// StrategyCrossContext uploads to a texture on the shared resource context.
	StrategyCrossContext
	// StrategyNative hands the pixels to the active rendering backend.
	StrategyNative
)

func (s Strategy) String() string {
	switch s {
	case StrategyRaster:
		return "raster"
	case StrategyCrossContext:
		return "cross-context"
	case StrategyNative:
		return "native"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// GPUSwitch guards GPU command submission. Execute calls exactly one of the
// handlers synchronously, and the state does not change while it runs.
type GPUSwitch interface {
	Execute(ifDisabled, ifEnabled func())
}

// ResourceContext is a GPU context that can create textures without a
// matching draw context.
type ResourceContext interface {
	Available() bool
	UploadTexture(pix *image.RGBA) (Image, error)
}

// Backend is a rendering backend with its own native image representation.
type Backend interface {
	Name() string
	Active() bool
	NativeImage(pix *image.RGBA) (Image, error)
}

type Option func(u *Uploader)

func WithLogger(log *zap.Logger) Option {
	return func(u *Uploader) {
		u.log = log
	}
}

func WithGPUSwitch(sw GPUSwitch) Option {
	return func(u *Uploader) {
		u.gpu = sw
	}
}

func WithResourceContext(rc ResourceContext) Option {
	return func(u *Uploader) {
		u.resource = rc
	}
}

func WithBackend(b Backend) Option {
	return func(u *Uploader) {
		u.backend = b
	}
}

func New(opts ...Option) *Uploader {
	u := &Uploader{
		log: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.gpu == nil {
		u.gpu = NewSwitch(false)
	}

	return u
}

// Uploader is safe for concurrent use as long as its collaborators are.
type Uploader struct {
	log      *zap.Logger
	gpu      GPUSwitch
	resource ResourceContext
	backend  Backend
}

// decide calls fn with the strategy for the current capabilities. For the
// GPU strategies fn runs inside the GPU switch.
func (u *Uploader) decide(fn func(Strategy)) {
	if u.backend != nil && u.backend.Active() {
		fn(StrategyNative)
		return
	}

	u.gpu.Execute(
		func() {
			fn(StrategyRaster)
		},
		func() {
			if u.resource != nil && u.resource.Available() {
				fn(StrategyCrossContext)
			} else {
				fn(StrategyRaster)
			}
		},
	)
}

// Strategy reports the strategy an upload would use right now.
func (u *Uploader) Strategy() Strategy {
	var s Strategy
	u.decide(func(d Strategy) { s = d })
	return s
}

// Upload converts pix into an Image. On failure the image is nil and the
// error wraps ErrUpload. Upload does not panic.
func (u *Uploader) Upload(pix *image.RGBA) (img Image, err error) {
	u.decide(func(s Strategy) {
		img, err = u.upload(s, pix)
	})
	return img, err
}

func (u *Uploader) upload(s Strategy, pix *image.RGBA) (img Image, err error) {
	log := u.log.With(zap.Stringer("strategy", s))

	defer func() {
		if r := recover(); r != nil {
			img, err = nil, errors.Wrapf(ErrUpload, "%s upload panicked: %v", s, r)
		}
		if err == nil && img == nil {
			err = errors.Wrapf(ErrUpload, "%s upload produced no image", s)
		}
		if err != nil {
			img = nil
			log.With(zap.Error(err)).Warn("upload failed")
			return
		}
		log.With(zap.Stringer("image", img.ID())).Debug("uploaded")
	}()

	if pix == nil {
		return nil, errors.Wrap(ErrUpload, "no pixels")
	}

	switch s {
	case StrategyNative:
		img, err = u.backend.NativeImage(pix)
		if err != nil {
			err = errors.Wrapf(ErrUpload, "%s backend: %v", u.backend.Name(), err)
		}
	case StrategyCrossContext:
		img, err = u.resource.UploadTexture(pix)
		if err != nil {
			err = errors.Wrapf(ErrUpload, "texture upload: %v", err)
		}
	default:
		img = NewRasterImage(pix)
	}

	return img, err
}
