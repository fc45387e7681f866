package runner

import (
	"sync"
)

// Manual is a TaskRunner that only runs tasks when asked to. It is useful for
// driving asynchronous code step by step.
type Manual struct {
	mu     sync.Mutex
	queue  []func()
	posted int
}

func (m *Manual) PostTask(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
	m.posted++
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Posted returns the number of tasks ever posted.
func (m *Manual) Posted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posted
}

// RunPending runs the tasks queued at the time of the call and returns how
// many ran. Tasks they post are left for the next call.
func (m *Manual) RunPending() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

// RunUntilIdle runs tasks until the queue is empty.
func (m *Manual) RunUntilIdle() int {
	var n int
	for {
		ran := m.RunPending()
		if ran == 0 {
			return n
		}
		n += ran
	}
}
