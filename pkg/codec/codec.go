package codec

import (
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"animscreen/pkg/bitmap"
	"animscreen/pkg/proto"
	"animscreen/pkg/runner"
	"animscreen/pkg/uploader"
)

// Runners are the execution contexts a Codec works on. Decode is where frames
// are composited and uploaded; Present is where callbacks run.
type Runners struct {
	Decode  runner.TaskRunner
	Present runner.TaskRunner
}

type config struct {
	log      *zap.Logger
	upload   *uploader.Uploader
	maxBytes int64
}

type Option func(c *config)

func WithLogger(log *zap.Logger) Option {
	return func(c *config) {
		c.log = log
	}
}

func WithUploader(u *uploader.Uploader) Option {
	return func(c *config) {
		c.upload = u
	}
}

// WithMaxBytes bounds the frame buffer size. Larger images fail to decode.
func WithMaxBytes(max int64) Option {
	return func(c *config) {
		c.maxBytes = max
	}
}

// New returns a Codec serving the frames of src.
func New(src proto.Source, runners Runners, opts ...Option) (*Codec, error) {
	if src == nil {
		return nil, errors.New("nil source")
	}
	if runners.Decode == nil || runners.Present == nil {
		return nil, errors.New("decode and present runners are required")
	}
	if v, ok := src.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid source")
		}
	}

	cfg := &config{
		log:      zap.NewNop(),
		maxBytes: bitmap.DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.upload == nil {
		cfg.upload = uploader.New(uploader.WithLogger(cfg.log))
	}

	s := newState(src, runners, cfg)
	c := &Codec{
		state:           s,
		frameCount:      s.frameCount,
		repetitionCount: s.repetitionCount,
	}
	runtime.SetFinalizer(c, (*Codec).Dispose)

	return c, nil
}

// Codec is the handle to an animated image. Its accessors are safe for
// concurrent use.
type Codec struct {
	state           *state
	frameCount      int
	repetitionCount int
}

func (c *Codec) FrameCount() int {
	return c.frameCount
}

// RepetitionCount is -1 for an animation that loops forever, otherwise the
// number of times it repeats after the first play.
func (c *Codec) RepetitionCount() int {
	return c.repetitionCount
}

// GetNextFrame requests the next frame. It returns immediately; fn is called
// later on the presentation runner. Nothing is scheduled when an error is
// returned.
func (c *Codec) GetNextFrame(fn Callback, opts ...RequestOption) error {
	if fn == nil {
		return ErrInvalidCallback
	}
	if !c.state.live.Load() {
		return ErrDisposed
	}

	c.state.requestFrame(newContinuation(fn, opts...))
	return nil
}

// Dispose drops the handle. Requests already posted still finish decoding,
// but their callbacks are released rather than called. Dispose is idempotent.
func (c *Codec) Dispose() {
	if !c.state.live.CompareAndSwap(true, false) {
		return
	}
	runtime.SetFinalizer(c, nil)
	c.state.release()
}
