// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"golang.org/x/sys/cpu"
)

const (
	// MaxHandlers is the size of the handler table. Id 0 is reserved, so at
	// most MaxHandlers-1 handlers may be registered at once.
	MaxHandlers = 128

	// MailboxHandlerID is the reserved id whose handler drains the local
	// mailbox. It cannot be registered, unregistered, or triggered directly.
	MailboxHandlerID HandlerID = 0

	// InvalidHandlerID is returned by Register when the table is full.
	InvalidHandlerID HandlerID = 0

	// MailboxSlots is the per-cpu mailbox capacity.
	MailboxSlots = 8

	pendingWords = MaxHandlers / 64
)

type (
	// HandlerID identifies a registered handler. Valid ids are within
	// [1, MaxHandlers).
	HandlerID uint32

	// Func is the signature of both asynchronous handlers and synchronous
	// message functions. It runs at interrupt priority: it must not block,
	// and should not allocate.
	Func func(arg any)

	// Dispatcher is the process-wide cross-call state: the handler table,
	// plus per-cpu pending bitmasks and mailboxes, sized once by [New].
	Dispatcher struct {
		platform       Platform
		preempter      Preempter
		counters       Counters
		logger         *logiface.Logger[logiface.Event]
		mailboxLimiter *catrate.Limiter
		cpus           []percpu
		locals         []Local
		registry       registry
		metrics        metrics
		online         CPUSet
	}

	// Local is the view of a Dispatcher from one processor. Operations with
	// an implicit "current processor" are methods of Local.
	//
	// A Local must only be used by code running on its processor.
	Local struct {
		d   *Dispatcher
		cpu int
	}

	// percpu is owned by one processor. Remote processors only ever set
	// pending bits, and claim mailbox slots.
	percpu struct { // betteralign:ignore
		_       cpu.CacheLinePad
		pending [pendingWords]atomic.Uint64
		_       cpu.CacheLinePad
		mailbox mailbox
		_       cpu.CacheLinePad
		// hardirq is held while handlers run on this processor, see
		// Local.irqDisable.
		hardirq atomic.Bool
		_       cpu.CacheLinePad
	}
)

// New allocates the dispatcher state for every processor reported by
// platform. Interrupts are delivered via [Dispatcher.HandleInterrupt].
func New(platform Platform, opts ...Option) (*Dispatcher, error) {
	if platform == nil {
		return nil, ErrNilPlatform
	}

	n := platform.NumCPU()
	if n < 1 || n > MaxCPUs {
		return nil, fmt.Errorf("%w: %d", ErrCPUCount, n)
	}

	cfg, err := resolveDispatcherOptions(platform, opts)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		platform:       platform,
		preempter:      cfg.preempter,
		counters:       cfg.counters,
		logger:         cfg.logger,
		mailboxLimiter: cfg.mailboxLimiter,
		cpus:           make([]percpu, n),
		locals:         make([]Local, n),
		online:         AllCPUs(n),
	}
	for i := range d.locals {
		d.locals[i] = Local{d: d, cpu: i}
	}

	d.logger.Info().
		Int(`cpus`, n).
		Int(`handlers`, MaxHandlers-1).
		Int(`mailbox_slots`, MailboxSlots).
		Log(`xcall dispatcher initialised`)

	return d, nil
}

// NumCPU returns the number of processors.
func (d *Dispatcher) NumCPU() int {
	return len(d.cpus)
}

// Online returns the set of all processors.
func (d *Dispatcher) Online() CPUSet {
	return d.online
}

// Local returns the view from the given processor.
func (d *Dispatcher) Local(cpu int) *Local {
	d.checkCPU(`local`, cpu)
	return &d.locals[cpu]
}

// HandleInterrupt is the interrupt entry path, equivalent to
// d.Local(cpu).Handle(). It must be called on cpu, by its owner.
func (d *Dispatcher) HandleInterrupt(cpu int) {
	d.Local(cpu).Handle()
}

// Metrics returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Metrics() Metrics {
	return d.metrics.snapshot()
}

// CPU returns the index of the processor.
func (l *Local) CPU() int {
	return l.cpu
}

// Dispatcher returns the dispatcher l belongs to.
func (l *Local) Dispatcher() *Dispatcher {
	return l.d
}

func (d *Dispatcher) checkCPU(op string, cpu int) {
	if cpu < 0 || cpu >= len(d.cpus) {
		d.assert(op, cpu, 0, ErrCPURange)
	}
}

func (d *Dispatcher) checkHandlerID(op string, cpu int, id HandlerID) {
	if id == MailboxHandlerID || id >= MaxHandlers {
		d.assert(op, cpu, id, ErrHandlerRange)
	}
}

// irqDisable masks handler execution on the local processor, spinning while
// another context (the interrupt path, or an inline invocation) holds it.
// It is not reentrant.
func (l *Local) irqDisable() {
	flag := &l.d.cpus[l.cpu].hardirq
	var b backoff
	for !flag.CompareAndSwap(false, true) {
		b.pause()
	}
}

func (l *Local) irqEnable() {
	l.d.cpus[l.cpu].hardirq.Store(false)
}

func (l *Local) preemptDisable() {
	if l.d.preempter != nil {
		l.d.preempter.PreemptDisable(l.cpu)
	}
}

func (l *Local) preemptEnable() {
	if l.d.preempter != nil {
		l.d.preempter.PreemptEnable(l.cpu)
	}
}
