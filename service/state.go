package service

import (
	"sync"
	"sync/atomic"
)

// State is the progress of a language server session.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Initialized
	ShutDown
	Exited
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	case ShutDown:
		return "shut down"
	case Exited:
		return "exited"
	}
	return "unknown"
}

// ServerState is the shared lifecycle cell. Any number of goroutines read it;
// the lifecycle handler advances it.
type ServerState struct {
	v        atomic.Int32
	exitOnce sync.Once
	exited   chan struct{}
}

// NewServerState returns a state cell at Uninitialized.
func NewServerState() *ServerState {
	return &ServerState{exited: make(chan struct{})}
}

// Get returns the current state.
func (s *ServerState) Get() State {
	return State(s.v.Load())
}

// Set advances the state to next. It reports false, leaving the state
// unchanged, if next is behind the current state.
func (s *ServerState) Set(next State) bool {
	for {
		cur := s.v.Load()
		if State(cur) > next {
			return false
		}
		if s.v.CompareAndSwap(cur, int32(next)) {
			break
		}
	}
	if next == Exited {
		s.exitOnce.Do(func() { close(s.exited) })
	}
	return true
}

// Exited returns a channel closed once the state reaches Exited.
func (s *ServerState) Exited() <-chan struct{} {
	return s.exited
}

// swap moves the state from exactly from to to. Unlike Set it may move
// backwards, which undoes a failed initialize.
func (s *ServerState) swap(from, to State) bool {
	return s.v.CompareAndSwap(int32(from), int32(to))
}
