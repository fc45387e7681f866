package codec

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/image/draw"

	"animscreen/pkg/proto"
	"animscreen/pkg/runner"
	"animscreen/pkg/uploader"
)

var palette = []color.RGBA{
	{R: 0xFF, A: 0xFF},
	{G: 0xFF, A: 0xFF},
	{B: 0xFF, A: 0xFF},
	{R: 0xFF, G: 0xFF, A: 0xFF},
}

// stripes draws frame i as a one pixel column at x=i over the previous frame.
type stripes struct {
	n         int
	playCount int
	fail      map[int]bool
	onPixels  func(index int)
	closed    bool
	calls     []int
}

func (s *stripes) FrameCount() int { return s.n }
func (s *stripes) PlayCount() int  { return s.playCount }

func (s *stripes) Info() proto.ImageInfo {
	return proto.ImageInfo{Width: 4, Height: 2, ColorType: proto.ColorN32, AlphaType: proto.AlphaPremul}
}

func (s *stripes) FrameInfo(index int) proto.FrameInfo {
	required := index - 1
	if index == 0 {
		required = proto.NoFrame
	}
	return proto.FrameInfo{
		Duration:       time.Duration(10*(index+1)) * time.Millisecond,
		DisposalMethod: proto.DisposeKeep,
		RequiredFrame:  required,
	}
}

func (s *stripes) GetPixels(info proto.ImageInfo, pix []byte, stride int, index int, required int) bool {
	s.calls = append(s.calls, index)
	if s.onPixels != nil {
		s.onPixels(index)
	}
	if s.fail[index] {
		return false
	}
	dst := &image.RGBA{Pix: pix, Stride: stride, Rect: info.Bounds()}
	c := palette[index%len(palette)]
	draw.Draw(dst, image.Rect(index%4, 0, index%4+1, 2), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return true
}

func (s *stripes) Close() error {
	if s.closed {
		return errors.New("closed twice")
	}
	s.closed = true
	return nil
}

type harness struct {
	decode  *runner.Manual
	present *runner.Manual
	codec   *Codec
}

func newHarness(t *testing.T, src proto.Source, opts ...Option) *harness {
	h := &harness{decode: &runner.Manual{}, present: &runner.Manual{}}
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	c, err := New(src, Runners{Decode: h.decode, Present: h.present}, opts...)
	require.NoError(t, err)
	h.codec = c
	return h
}

// next requests one frame and runs both runners to completion.
func (h *harness) next(t *testing.T) Frame {
	t.Helper()
	var got []Frame
	require.NoError(t, h.codec.GetNextFrame(func(f Frame) { got = append(got, f) }))
	h.decode.RunUntilIdle()
	h.present.RunUntilIdle()
	require.Len(t, got, 1)
	return got[0]
}

func snapshot(t *testing.T, img uploader.Image) []byte {
	t.Helper()
	require.NotNil(t, img)
	pix, err := img.Snapshot()
	require.NoError(t, err)
	return pix.(*image.RGBA).Pix
}

func TestRepetitionCount(t *testing.T) {
	cases := []struct {
		playCount int
		want      int
	}{
		{playCount: proto.InfinitePlayCount, want: -1},
		{playCount: 1, want: 0},
		{playCount: 4, want: 3},
	}

	for _, c := range cases {
		h := newHarness(t, &stripes{n: 2, playCount: c.playCount})
		assert.Equal(t, c.want, h.codec.RepetitionCount(), "play count %d", c.playCount)
		assert.Equal(t, 2, h.codec.FrameCount())
	}
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, Runners{Decode: &runner.Manual{}, Present: &runner.Manual{}})
	assert.Error(t, err)

	_, err = New(&stripes{n: 1}, Runners{Decode: &runner.Manual{}})
	assert.Error(t, err)
}

func TestGetNextFrameRejectsNilCallback(t *testing.T) {
	h := newHarness(t, &stripes{n: 2})

	err := h.codec.GetNextFrame(nil)
	assert.ErrorIs(t, err, ErrInvalidCallback)
	assert.Equal(t, 0, h.decode.Posted())
	assert.Equal(t, 0, h.present.Posted())
}

func TestGetNextFrameEmptySequence(t *testing.T) {
	h := newHarness(t, &stripes{n: 0})

	for i := 0; i < 3; i++ {
		f := h.next(t)
		assert.Nil(t, f.Image)
		assert.Zero(t, f.Duration)
		require.ErrorIs(t, f.Err, ErrEmptySequence)
		assert.Equal(t, "Could not provide any frame.", f.Err.Error())
	}
	assert.Equal(t, 0, h.decode.Posted())
}

func TestGetNextFrameLoops(t *testing.T) {
	src := &stripes{n: 3, playCount: proto.InfinitePlayCount}
	h := newHarness(t, src)

	var first [][]byte
	for i := 0; i < 9; i++ {
		f := h.next(t)
		require.NoError(t, f.Err)
		assert.Equal(t, time.Duration(10*(i%3+1))*time.Millisecond, f.Duration, "request %d", i)

		pix := snapshot(t, f.Image)
		if i < 3 {
			first = append(first, pix)
			continue
		}
		assert.Equal(t, first[i%3], pix, "request %d", i)
	}

	assert.Equal(t, []int{0, 1, 2, 0, 1, 2, 0, 1, 2}, src.calls)
}

func TestGetNextFrameSourceFailureSkipsFrame(t *testing.T) {
	src := &stripes{n: 3, fail: map[int]bool{1: true}}
	h := newHarness(t, src)

	f := h.next(t)
	require.NoError(t, f.Err)

	f = h.next(t)
	assert.Nil(t, f.Image)
	assert.Zero(t, f.Duration)
	require.ErrorIs(t, f.Err, ErrSourceDecode)
	assert.Contains(t, f.Err.Error(), "frame 1")

	f = h.next(t)
	require.NoError(t, f.Err)
	assert.Equal(t, 30*time.Millisecond, f.Duration)

	assert.Equal(t, []int{0, 1, 2}, src.calls)
}

type failingBackend struct{}

func (failingBackend) Name() string { return "broken" }
func (failingBackend) Active() bool { return true }
func (failingBackend) NativeImage(*image.RGBA) (uploader.Image, error) {
	return nil, errors.New("device busy")
}

func TestGetNextFrameUploadFailureAdvances(t *testing.T) {
	src := &stripes{n: 2}
	h := newHarness(t, src, WithUploader(uploader.New(uploader.WithBackend(failingBackend{}))))

	for i := 0; i < 3; i++ {
		f := h.next(t)
		assert.Nil(t, f.Image)
		assert.Zero(t, f.Duration)
		assert.ErrorIs(t, f.Err, ErrUpload)
	}
	assert.Equal(t, []int{0, 1, 0}, src.calls)
}

func TestGetNextFrameAllocationFailure(t *testing.T) {
	h := newHarness(t, &stripes{n: 2}, WithMaxBytes(8))

	f := h.next(t)
	assert.Nil(t, f.Image)
	require.ErrorIs(t, f.Err, ErrAllocation)
	assert.Contains(t, f.Err.Error(), "32B")
}

func TestGetNextFrameOverlappingRequests(t *testing.T) {
	h := newHarness(t, &stripes{n: 4})

	var got []time.Duration
	for i := 0; i < 3; i++ {
		require.NoError(t, h.codec.GetNextFrame(func(f Frame) { got = append(got, f.Duration) }))
	}
	h.decode.RunUntilIdle()
	h.present.RunUntilIdle()

	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, got)
}

func TestDisposeBeforeDecode(t *testing.T) {
	src := &stripes{n: 2}
	h := newHarness(t, src)

	var called, released bool
	require.NoError(t, h.codec.GetNextFrame(func(Frame) { called = true }, OnRelease(func() { released = true })))

	h.codec.Dispose()
	h.codec.Dispose()
	assert.True(t, src.closed)

	h.decode.RunUntilIdle()
	assert.Empty(t, src.calls)
	h.present.RunUntilIdle()

	assert.False(t, called)
	assert.True(t, released)

	assert.ErrorIs(t, h.codec.GetNextFrame(func(Frame) {}), ErrDisposed)
}

func TestDisposeWhileDecoding(t *testing.T) {
	src := &stripes{n: 2, playCount: proto.InfinitePlayCount}
	rc := uploader.NewSoftwareContext()
	h := newHarness(t, src, WithUploader(uploader.New(uploader.WithResourceContext(rc))))

	src.onPixels = func(int) {
		h.codec.Dispose()
		assert.False(t, src.closed, "source released while a decode holds it")
	}

	var called, released bool
	require.NoError(t, h.codec.GetNextFrame(func(Frame) { called = true }, OnRelease(func() { released = true })))

	h.decode.RunUntilIdle()
	assert.Equal(t, []int{0}, src.calls)
	assert.True(t, src.closed)
	assert.Equal(t, 1, rc.Textures())

	h.present.RunUntilIdle()
	assert.False(t, called)
	assert.True(t, released)
	assert.Equal(t, 0, rc.Textures())
}

func TestCallerContextGone(t *testing.T) {
	h := newHarness(t, &stripes{n: 2})

	ctx, cancel := context.WithCancel(context.Background())
	var called, released bool
	require.NoError(t, h.codec.GetNextFrame(func(Frame) { called = true },
		WithContext(ctx), OnRelease(func() { released = true })))

	h.decode.RunUntilIdle()
	cancel()
	h.present.RunUntilIdle()

	assert.False(t, called)
	assert.True(t, released)

	f := h.next(t)
	require.NoError(t, f.Err)
	assert.Equal(t, 20*time.Millisecond, f.Duration)
}

func TestCallerContextGoneFreesTexture(t *testing.T) {
	rc := uploader.NewSoftwareContext()
	h := newHarness(t, &stripes{n: 2}, WithUploader(uploader.New(uploader.WithResourceContext(rc))))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, h.codec.GetNextFrame(func(Frame) {}, WithContext(ctx)))

	h.decode.RunUntilIdle()
	assert.Equal(t, 1, rc.Textures())

	cancel()
	h.present.RunUntilIdle()
	assert.Equal(t, 0, rc.Textures())
}

// checked is a source that can report itself broken.
type checked struct {
	*stripes
	err error
}

func (c checked) Validate() error {
	return c.err
}

func TestNewValidatesSource(t *testing.T) {
	runners := Runners{Decode: &runner.Manual{}, Present: &runner.Manual{}}

	_, err := New(checked{stripes: &stripes{n: 2}, err: errors.New("frame 1 requires frame 1")}, runners)
	assert.Error(t, err)

	c, err := New(checked{stripes: &stripes{n: 2}}, runners)
	require.NoError(t, err)
	assert.Equal(t, 2, c.FrameCount())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", phaseIdle.String())
	assert.Equal(t, "decoding", phaseDecoding.String())
	assert.Equal(t, "uploading", phaseUploading.String())
	assert.Equal(t, "completed", phaseCompleted.String())
	assert.Equal(t, "unknown", phase(9).String())
}

func TestContinuationFiresOnce(t *testing.T) {
	var calls, releases int
	k := newContinuation(func(Frame) { calls++ }, OnRelease(func() { releases++ }))
	log := zaptest.NewLogger(t)

	k.invoke(Frame{}, log)
	k.invoke(Frame{}, log)
	k.release()

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, releases)
}

func TestCodecOnLoops(t *testing.T) {
	log := zaptest.NewLogger(t)
	decode := runner.NewLoop("io", runner.WithLogger(log))
	present := runner.NewLoop("ui", runner.WithLogger(log))
	require.NoError(t, decode.Start(context.Background()))
	require.NoError(t, present.Start(context.Background()))
	defer decode.Stop()
	defer present.Stop()

	src := &stripes{n: 3, playCount: 2}
	c, err := New(src, Runners{Decode: decode, Present: present}, WithLogger(log))
	require.NoError(t, err)
	defer c.Dispose()

	var mu sync.Mutex
	var durations []time.Duration
	for i := 0; i < 5; i++ {
		done := make(chan struct{})
		require.NoError(t, c.GetNextFrame(func(f Frame) {
			mu.Lock()
			durations = append(durations, f.Duration)
			mu.Unlock()
			close(done)
		}))
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("frame %d not delivered", i)
		}
	}

	assert.Equal(t, []time.Duration{
		10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond,
		10 * time.Millisecond, 20 * time.Millisecond,
	}, durations)
	assert.Equal(t, 1, c.RepetitionCount())
}
