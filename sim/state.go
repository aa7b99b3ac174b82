// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package sim

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// MachineState represents the lifecycle state of a Machine.
//
// State Machine:
//
//	StateAwake → StateRunning            [Start()]
//	StateAwake → StateTerminated         [Close() before Start()]
//	StateRunning → StateTerminating      [Close()]
//	StateTerminating → StateTerminated   [processors stopped]
//	StateTerminated → (terminal)
type MachineState uint64

const (
	// StateAwake indicates the machine has been created but not started.
	// Interrupts sent in this state are latched, and serviced after Start.
	StateAwake MachineState = iota
	// StateRunning indicates every processor is servicing interrupts.
	StateRunning
	// StateTerminating indicates Close has been called, but processors may
	// still be running.
	StateTerminating
	// StateTerminated indicates every processor has stopped.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s MachineState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding.
type fastState struct { // betteralign:ignore
	_ cpu.CacheLinePad
	v atomic.Uint64
	_ cpu.CacheLinePad
}

// Load returns the current state atomically.
func (s *fastState) Load() MachineState {
	return MachineState(s.v.Load())
}

// Store atomically stores a new state. Only used for the terminal state.
func (s *fastState) Store(state MachineState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to another.
func (s *fastState) TryTransition(from, to MachineState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}
