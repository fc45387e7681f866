package uploader

import (
	"sync"
)

// NewSwitch returns a GPUSwitch in the given state.
func NewSwitch(disabled bool) *Switch {
	return &Switch{disabled: disabled}
}

// Switch is a GPUSwitch that can be flipped from any goroutine. SetDisabled
// waits for running handlers to return.
type Switch struct {
	mu       sync.RWMutex
	disabled bool
}

func (s *Switch) Execute(ifDisabled, ifEnabled func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disabled {
		if ifDisabled != nil {
			ifDisabled()
		}
		return
	}
	if ifEnabled != nil {
		ifEnabled()
	}
}

func (s *Switch) SetDisabled(disabled bool) {
	s.mu.Lock()
	s.disabled = disabled
	s.mu.Unlock()
}

func (s *Switch) Disabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.disabled
}
