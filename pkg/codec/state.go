package codec

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"animscreen/pkg/compositor"
	"animscreen/pkg/proto"
	"animscreen/pkg/runner"
	"animscreen/pkg/uploader"
)

// phase is the progress of a single frame request, logged at debug level.
type phase int

const (
	phaseIdle phase = iota
	phaseDecoding
	phaseUploading
	phaseCompleted
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseDecoding:
		return "decoding"
	case phaseUploading:
		return "uploading"
	case phaseCompleted:
		return "completed"
	}
	return "unknown"
}

// state is shared between a Codec and the tasks it posts. The Codec holds one
// reference; every decode task holds one more while it runs. The source is
// released with the last reference.
type state struct {
	log     *zap.Logger
	source  proto.Source
	decode  runner.TaskRunner
	present runner.TaskRunner
	upload  *uploader.Uploader

	frameCount      int
	repetitionCount int

	// Decode runner only.
	compositor *compositor.Compositor
	nextFrame  int

	refs atomic.Int32
	// live is cleared when the Codec is disposed.
	live atomic.Bool
}

func newState(src proto.Source, runners Runners, cfg *config) *state {
	s := &state{
		log:        cfg.log,
		source:     src,
		decode:     runners.Decode,
		present:    runners.Present,
		upload:     cfg.upload,
		frameCount: src.FrameCount(),
		compositor: compositor.New(
			compositor.WithLogger(cfg.log),
			compositor.WithMaxBytes(cfg.maxBytes),
		),
	}

	if pc := src.PlayCount(); pc == proto.InfinitePlayCount {
		s.repetitionCount = -1
	} else {
		s.repetitionCount = pc - 1
	}

	s.refs.Store(1)
	s.live.Store(true)
	return s
}

// tryRetain takes a reference unless the state is already gone.
func (s *state) tryRetain() bool {
	for {
		n := s.refs.Load()
		if n <= 0 {
			return false
		}
		if s.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (s *state) release() {
	if s.refs.Add(-1) != 0 {
		return
	}

	s.compositor.Reset()
	if c, ok := s.source.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.log.With(zap.Error(err)).Warn("close source failed")
		}
	}
	s.log.Debug("codec state released")
}

// requestFrame posts the decode of the next frame. k is called or released
// on the presentation runner.
func (s *state) requestFrame(k *continuation) {
	if s.frameCount == 0 {
		s.log.Error(ErrEmptySequence.Error())
		s.present.PostTask(func() {
			s.deliver(k, Frame{Err: ErrEmptySequence})
		})
		return
	}

	present := s.present
	s.decode.PostTask(func() {
		if !s.tryRetain() {
			present.PostTask(k.release)
			return
		}
		defer s.release()

		s.nextFrameAndDeliver(k)
	})
}

// nextFrameAndDeliver runs on the decode runner.
func (s *state) nextFrameAndDeliver(k *continuation) {
	index := s.nextFrame
	log := s.log.With(zap.Stringer("request", xid.New()), zap.Int("frame", index))
	step := func(p phase) { log.With(zap.Stringer("phase", p)).Debug("frame request") }

	step(phaseDecoding)
	pix, err := s.compositor.DecodeFrame(s.source, index)

	var img uploader.Image
	if err == nil {
		step(phaseUploading)
		img, err = s.upload.Upload(pix)
	}

	var duration time.Duration
	if img != nil {
		duration = s.source.FrameInfo(index).Duration
	}
	s.nextFrame = (index + 1) % s.frameCount

	step(phaseCompleted)
	f := Frame{Image: img, Duration: duration, Err: err}
	s.present.PostTask(func() {
		s.deliver(k, f)
	})
}

// deliver runs on the presentation runner.
func (s *state) deliver(k *continuation, f Frame) {
	if !s.live.Load() {
		s.log.Debug("codec disposed, dropping frame")
		releaseImage(f.Image)
		k.release()
		return
	}
	k.invoke(f, s.log)
}
