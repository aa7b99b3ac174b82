// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"sync"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// defaultMailboxFullLogRates limits "mailbox full" warnings, per target cpu.
var defaultMailboxFullLogRates = map[time.Duration]int{
	time.Second: 10,
}

// defaultMailboxFullLimiter is shared by every Dispatcher, so each does not
// start its own limiter worker goroutine.
var defaultMailboxFullLimiter = sync.OnceValue(func() *catrate.Limiter {
	return catrate.NewLimiter(defaultMailboxFullLogRates)
})

// dispatcherOptions holds configuration options for Dispatcher creation.
type dispatcherOptions struct {
	logger         *logiface.Logger[logiface.Event]
	preempter      Preempter
	counters       Counters
	mailboxLimiter *catrate.Limiter
	noLimiter      bool
}

// Option configures a Dispatcher instance.
type Option interface {
	applyDispatcher(*dispatcherOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyDispatcherFunc func(*dispatcherOptions) error
}

func (o *optionImpl) applyDispatcher(opts *dispatcherOptions) error {
	return o.applyDispatcherFunc(opts)
}

// WithLogger configures structured logging. The default (nil) logs nothing.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithPreempter sets the Preempter used by [Local.Call].
// Overrides any Preempter implemented by the Platform.
func WithPreempter(preempter Preempter) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.preempter = preempter
		return nil
	}}
}

// WithCounters sets the sink for observability counters.
// Overrides any Counters implemented by the Platform.
func WithCounters(counters Counters) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.counters = counters
		return nil
	}}
}

// WithMailboxFullLimiter sets the rate limiter applied to "mailbox full"
// warnings, categorised by target cpu. A nil limiter disables rate limiting.
// The default allows 10 warnings per second, per cpu, and is shared by every
// Dispatcher in the process.
func WithMailboxFullLimiter(limiter *catrate.Limiter) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.mailboxLimiter = limiter
		opts.noLimiter = limiter == nil
		return nil
	}}
}

// resolveDispatcherOptions applies Option instances to dispatcherOptions.
func resolveDispatcherOptions(platform Platform, opts []Option) (*dispatcherOptions, error) {
	cfg := &dispatcherOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyDispatcher(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.preempter == nil {
		cfg.preempter, _ = platform.(Preempter)
	}
	if cfg.counters == nil {
		cfg.counters, _ = platform.(Counters)
	}
	if cfg.mailboxLimiter == nil && !cfg.noLimiter && cfg.logger != nil {
		cfg.mailboxLimiter = defaultMailboxFullLimiter()
	}
	return cfg, nil
}
