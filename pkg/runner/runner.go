// Package runner provides ordered execution contexts.
//
// A TaskRunner executes posted closures one at a time in the order they were
// posted. Work that only ever runs on one runner needs no further locking.
package runner

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

type TaskRunner interface {
	// PostTask enqueues fn. It never blocks on fn.
	PostTask(fn func())
}

type Option func(l *Loop)

func WithLogger(log *zap.Logger) Option {
	return func(l *Loop) {
		l.log = log
	}
}

// NewLoop returns a runner backed by a single goroutine. Tasks posted before
// Start are kept and run once the loop starts.
func NewLoop(name string, opts ...Option) *Loop {
	l := &Loop{name: name, log: zap.NewNop()}
	l.cond = sync.NewCond(&l.mu)

	for _, opt := range opts {
		opt(l)
	}

	l.log = l.log.With(zap.String("runner", name))
	return l
}

type Loop struct {
	name string
	log  *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	started bool
	stopped bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (l *Loop) Name() string {
	return l.name
}

// PostTask enqueues fn. Tasks posted after Stop are dropped.
func (l *Loop) PostTask(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		l.log.Debug("task posted after stop, dropped")
		return
	}

	l.queue = append(l.queue, fn)
	l.cond.Signal()
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("runner %s already started", l.name)
	}
	l.started = true

	ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(2)
	go l.run()
	go func() {
		defer l.wg.Done()
		<-ctx.Done()
		l.mu.Lock()
		l.stopped = true
		l.cond.Broadcast()
		l.mu.Unlock()
	}()

	return nil
}

// Stop stops accepting tasks and waits for the loop to exit. Tasks already
// queued are run before Stop returns.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.started {
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

func (l *Loop) run() {
	defer l.wg.Done()

	for {
		l.mu.Lock()
		for len(l.queue) == 0 && !l.stopped {
			l.cond.Wait()
		}
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(fn)
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.log.With(zap.Any("panic", r)).Error("task panicked")
		}
	}()
	fn()
}
