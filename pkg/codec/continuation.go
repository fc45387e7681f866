package codec

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"animscreen/pkg/uploader"
)

// Frame is the result of one GetNextFrame request. Image is nil exactly when
// Err is set.
type Frame struct {
	Image    uploader.Image
	Duration time.Duration
	Err      error
}

type Callback func(Frame)

type RequestOption func(k *continuation)

// WithContext ties the callback to the lifetime of its caller. If ctx is done
// when the frame is ready the callback is released instead of called.
func WithContext(ctx context.Context) RequestOption {
	return func(k *continuation) {
		k.ctx = ctx
	}
}

// OnRelease registers fn to run when the callback is dropped without being
// called.
func OnRelease(fn func()) RequestOption {
	return func(k *continuation) {
		k.onRelease = fn
	}
}

// continuation is a callback that is either called or released, once.
type continuation struct {
	fn        Callback
	ctx       context.Context
	onRelease func()
	done      atomic.Bool
}

func newContinuation(fn Callback, opts ...RequestOption) *continuation {
	k := &continuation{fn: fn}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

func (k *continuation) invoke(f Frame, log *zap.Logger) {
	if k.ctx != nil && k.ctx.Err() != nil {
		log.With(zap.Error(k.ctx.Err())).Warn("could not acquire caller state while firing next frame callback")
		releaseImage(f.Image)
		k.release()
		return
	}
	if !k.done.CompareAndSwap(false, true) {
		return
	}
	k.fn(f)
}

func (k *continuation) release() {
	if !k.done.CompareAndSwap(false, true) {
		return
	}
	if k.onRelease != nil {
		k.onRelease()
	}
}

// releaseImage frees img if it holds a resource nobody else will free.
func releaseImage(img uploader.Image) {
	if r, ok := img.(interface{ Release() }); ok {
		r.Release()
	}
}
