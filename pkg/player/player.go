// Package player shows an animation on a display in real time.
package player

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"animscreen/pkg/codec"
	"animscreen/pkg/mixer"
)

var ErrNoFrames = errors.New("no frame could be decoded")

type Option func(p *Player)

func WithLogger(log *zap.Logger) Option {
	return func(p *Player) {
		p.log = log
	}
}

// WithMinDelay is the shortest time a frame stays on screen. Many GIFs carry
// zero delays that are meant to be shown at a sensible rate.
func WithMinDelay(d time.Duration) Option {
	return func(p *Player) {
		p.minDelay = d
	}
}

// WithPlays overrides how often the animation is played. Zero keeps the
// count stored in the image, a negative value loops forever.
func WithPlays(n int) Option {
	return func(p *Player) {
		p.plays = n
	}
}

func New(c *codec.Codec, d *mixer.Drawer, opts ...Option) *Player {
	p := &Player{
		codec:  c,
		drawer: d,
		log:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type Player struct {
	codec    *codec.Codec
	drawer   *mixer.Drawer
	log      *zap.Logger
	minDelay time.Duration
	plays    int
	shown    int
}

// total is the number of frames to show, -1 for no limit.
func (p *Player) total() int {
	plays := p.plays
	if plays == 0 {
		if rep := p.codec.RepetitionCount(); rep < 0 {
			plays = -1
		} else {
			plays = rep + 1
		}
	}
	if plays < 0 {
		return -1
	}
	return plays * p.codec.FrameCount()
}

// Shown returns the number of frames drawn by Run.
func (p *Player) Shown() int {
	return p.shown
}

// Run plays the animation until it ends or ctx is done. Frames that fail to
// decode are skipped; a whole play without a single frame is an error.
func (p *Player) Run(ctx context.Context) error {
	total, count := p.total(), p.codec.FrameCount()
	log := p.log.With(zap.Int("frames", count), zap.Int("total", total))
	log.Info("playing")

	if count == 0 {
		f, err := p.next(ctx)
		if err != nil {
			return err
		}
		return f.Err
	}

	failed := 0
	for i := 0; total < 0 || i < total; i++ {
		f, err := p.next(ctx)
		if err != nil {
			return err
		}

		if f.Err != nil {
			if errors.Is(f.Err, codec.ErrEmptySequence) {
				return f.Err
			}
			log.With(zap.Int("index", i%count), zap.Error(f.Err)).Warn("frame skipped")
			if failed++; failed >= count {
				return errors.Wrap(ErrNoFrames, f.Err.Error())
			}
			continue
		}
		failed = 0

		if err := p.show(f, i%count == 0); err != nil {
			return fmt.Errorf("draw frame failed: %w", err)
		}
		p.shown++

		if err := p.wait(ctx, f.Duration); err != nil {
			return err
		}
	}

	log.With(zap.Int("shown", p.shown)).Info("finished")
	return nil
}

// next requests one frame and waits for it.
func (p *Player) next(ctx context.Context) (codec.Frame, error) {
	ch := make(chan codec.Frame, 1)
	released := make(chan struct{})

	err := p.codec.GetNextFrame(
		func(f codec.Frame) { ch <- f },
		codec.WithContext(ctx),
		codec.OnRelease(func() { close(released) }),
	)
	if err != nil {
		return codec.Frame{}, err
	}

	select {
	case f := <-ch:
		return f, nil
	case <-released:
		if err := ctx.Err(); err != nil {
			return codec.Frame{}, err
		}
		return codec.Frame{}, codec.ErrDisposed
	case <-ctx.Done():
		select {
		case f := <-ch:
			release(f)
		default:
		}
		return codec.Frame{}, ctx.Err()
	}
}

func release(f codec.Frame) {
	if r, ok := f.Image.(interface{ Release() }); ok {
		r.Release()
	}
}

func (p *Player) show(f codec.Frame, transition bool) error {
	defer release(f)

	img, err := f.Image.Snapshot()
	if err != nil {
		return err
	}

	p.log.With(
		zap.Stringer("image", f.Image.ID()),
		zap.Stringer("kind", f.Image.Kind()),
		zap.Duration("duration", f.Duration),
	).Debug("show")
	return p.drawer.Canvas(img, transition)
}

func (p *Player) wait(ctx context.Context, d time.Duration) error {
	if d < p.minDelay {
		d = p.minDelay
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
