// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"errors"
	"fmt"
)

// Configuration errors, returned by [New].
var (
	// ErrNilPlatform is returned when no [Platform] is provided.
	ErrNilPlatform = errors.New("xcall: nil platform")

	// ErrCPUCount is returned when the platform reports a processor count
	// outside of [1, MaxCPUs].
	ErrCPUCount = errors.New("xcall: invalid cpu count")
)

// Programmer errors. These are never returned, they are wrapped by an
// [AssertionError] and panicked, because continuing after any of them risks
// corrupting state shared by every processor.
var (
	// ErrSelfTarget indicates a processor used the remote dispatch path to
	// target itself.
	ErrSelfTarget = errors.New("xcall: cpu targeted itself")

	// ErrUnregisteredHandler indicates a handler id with no registered
	// handler was triggered, dispatched or unregistered.
	ErrUnregisteredHandler = errors.New("xcall: handler not registered")

	// ErrDoubleUnregister indicates a handler id was unregistered while a
	// previous unregister of the same id was still in progress.
	ErrDoubleUnregister = errors.New("xcall: handler already being unregistered")

	// ErrHandlerRange indicates a handler id outside of [1, MaxHandlers).
	ErrHandlerRange = errors.New("xcall: handler id out of range")

	// ErrMessageInFlight indicates a [Message] was dispatched again before it
	// reached completion.
	ErrMessageInFlight = errors.New("xcall: message reused before completion")

	// ErrNilFunc indicates a nil handler or message function.
	ErrNilFunc = errors.New("xcall: nil function")

	// ErrCPURange indicates a processor index outside of the online set.
	ErrCPURange = errors.New("xcall: cpu out of range")
)

// AssertionError is the panic value used for fatal assertions.
//
// Use [errors.Is] against the package's Err* values to match the cause.
type AssertionError struct {
	// Err is the underlying programmer error, e.g. [ErrSelfTarget].
	Err error
	// Op names the operation that failed, e.g. "trigger".
	Op string
	// CPU is the processor the operation was performed on, or -1 if not
	// applicable.
	CPU int
	// ID is the handler id involved, if any.
	ID HandlerID
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	if e.CPU < 0 {
		return fmt.Sprintf("xcall: assertion failed: %s (id=%d): %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("xcall: assertion failed: %s (cpu=%d id=%d): %v", e.Op, e.CPU, e.ID, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *AssertionError) Unwrap() error {
	return e.Err
}
