// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package sim

import (
	"fmt"
	"runtime"

	"github.com/joeycumines/logiface"
)

// machineOptions holds configuration options for Machine creation.
type machineOptions struct {
	logger *logiface.Logger[logiface.Event]
	hook   func(cpu int)
	cpus   int
}

// Option configures a Machine instance.
type Option interface {
	applyMachine(*machineOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyMachineFunc func(*machineOptions) error
}

func (o *optionImpl) applyMachine(opts *machineOptions) error {
	return o.applyMachineFunc(opts)
}

// WithCPUs sets the number of simulated processors.
// Defaults to runtime.NumCPU().
func WithCPUs(n int) Option {
	return &optionImpl{func(opts *machineOptions) error {
		if n < 1 {
			return fmt.Errorf("%w: %d", ErrCPUCount, n)
		}
		opts.cpus = n
		return nil
	}}
}

// WithLogger configures structured logging. The default (nil) logs nothing.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *machineOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithInterruptHook sets a function called (on the sender) for every
// interrupt sent, before it is delivered. It must be safe for concurrent use.
func WithInterruptHook(hook func(cpu int)) Option {
	return &optionImpl{func(opts *machineOptions) error {
		opts.hook = hook
		return nil
	}}
}

// resolveMachineOptions applies Option instances to machineOptions.
func resolveMachineOptions(opts []Option) (*machineOptions, error) {
	cfg := &machineOptions{
		cpus: runtime.NumCPU(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyMachine(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
