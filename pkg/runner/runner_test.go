package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop("decode", WithLogger(zaptest.NewLogger(t)))

	var mu sync.Mutex
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		l.PostTask(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}

	require.NoError(t, l.Start(context.Background()))
	assert.Error(t, l.Start(context.Background()))

	done := make(chan struct{})
	l.PostTask(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not run tasks")
	}
	l.Stop()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopStopDrainsAndDrops(t *testing.T) {
	l := NewLoop("ui")
	require.NoError(t, l.Start(context.Background()))

	var ran int
	block := make(chan struct{})
	l.PostTask(func() { <-block })
	l.PostTask(func() { ran++ })

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(block)
	}()
	l.Stop()
	assert.Equal(t, 1, ran)

	l.PostTask(func() { ran++ })
	assert.Equal(t, 1, ran)
}

func TestLoopStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop("io")
	require.NoError(t, l.Start(ctx))

	cancel()
	stopped := make(chan struct{})
	go func() {
		l.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestLoopSurvivesPanics(t *testing.T) {
	l := NewLoop("decode", WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	done := make(chan struct{})
	l.PostTask(func() { panic("boom") })
	l.PostTask(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop died after panic")
	}
}

func TestStopWithoutStart(t *testing.T) {
	l := NewLoop("idle")
	var ran bool
	l.PostTask(func() { ran = true })
	l.Stop()
	assert.False(t, ran)
}

func TestManual(t *testing.T) {
	var m Manual
	var got []string

	m.PostTask(func() {
		got = append(got, "a")
		m.PostTask(func() { got = append(got, "c") })
	})
	m.PostTask(func() { got = append(got, "b") })

	assert.Equal(t, 2, m.Pending())
	assert.Equal(t, 2, m.RunPending())
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, m.Pending())

	assert.Equal(t, 1, m.RunUntilIdle())
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, 3, m.Posted())
}
