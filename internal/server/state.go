package server

import "sync"

// BusyState serializes the mutating pipeline endpoints: only one
// pull/refresh may run at a time, and readers can ask without blocking.
type BusyState interface {
	// TryAcquire marks the pipeline busy, reporting false when it
	// already is.
	TryAcquire() bool
	// Release clears the busy flag.
	Release()
	// Busy reports the current state.
	Busy() bool
}

type memoryBusyState struct {
	mu   sync.Mutex
	busy bool
}

// NewBusyState returns an in-memory BusyState.
func NewBusyState() BusyState {
	return &memoryBusyState{}
}

func (s *memoryBusyState) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *memoryBusyState) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *memoryBusyState) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}
