// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"golang.org/x/sys/cpu"
)

var (
	// ErrCPUCount is returned for a processor count less than one.
	ErrCPUCount = errors.New("sim: invalid cpu count")

	// ErrNilHandler is returned by Start given a nil Handler.
	ErrNilHandler = errors.New("sim: nil handler")

	// ErrMachineStarted is returned by Start if already started.
	ErrMachineStarted = errors.New("sim: machine already started")

	// ErrMachineTerminated is returned by Start after Close.
	ErrMachineTerminated = errors.New("sim: machine terminated")

	// ErrPreemptUnderflow is the panic value for an unbalanced PreemptEnable.
	ErrPreemptUnderflow = errors.New("sim: preempt enable without disable")
)

// Handler is the interrupt entry point of the software running on the
// machine, e.g. *xcall.Dispatcher.
type Handler interface {
	HandleInterrupt(cpu int)
}

// Machine simulates a multi-processor system. Each processor is a goroutine
// that sleeps until it is sent an interrupt, then enters the Handler.
//
// The interrupt line of each processor is a single bit (a channel of
// capacity 1): interrupts sent while one is already latched are merged, the
// same as a real edge-triggered line. Handler must therefore service
// everything that is due, not one event per interrupt.
//
// Machine implements the Platform, Preempter and Counters interfaces of
// package xcall.
type Machine struct {
	logger  *logiface.Logger[logiface.Event]
	hook    func(cpu int)
	handler Handler
	cancel  context.CancelFunc
	cpus    []cpuState
	wg      sync.WaitGroup
	state   fastState
	mu      sync.Mutex
}

type cpuState struct { // betteralign:ignore
	_    cpu.CacheLinePad
	line chan struct{}
	// run serializes tasks executing on this processor, see Machine.Exec
	run         sync.Mutex
	preempt     atomic.Int64
	inIRQ       atomic.Bool
	sent        atomic.Uint64
	serviced    atomic.Uint64
	mailboxFull atomic.Uint64
	_           cpu.CacheLinePad
}

// New creates a machine, in StateAwake.
func New(opts ...Option) (*Machine, error) {
	cfg, err := resolveMachineOptions(opts)
	if err != nil {
		return nil, err
	}
	m := &Machine{
		logger: cfg.logger,
		hook:   cfg.hook,
		cpus:   make([]cpuState, cfg.cpus),
	}
	for i := range m.cpus {
		m.cpus[i].line = make(chan struct{}, 1)
	}
	return m, nil
}

// NumCPU returns the number of simulated processors.
func (m *Machine) NumCPU() int {
	return len(m.cpus)
}

// State returns the current lifecycle state.
func (m *Machine) State() MachineState {
	return m.state.Load()
}

// Start runs every processor, each calling h.HandleInterrupt(cpu) on
// interrupt, until ctx is canceled or Close is called.
func (m *Machine) Start(ctx context.Context, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.TryTransition(StateAwake, StateRunning) {
		if m.state.Load() == StateRunning {
			return ErrMachineStarted
		}
		return ErrMachineTerminated
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.handler = h

	m.wg.Add(len(m.cpus))
	for i := range m.cpus {
		go m.run(ctx, i)
	}

	m.logger.Info().
		Int(`cpus`, len(m.cpus)).
		Log(`machine started`)

	return nil
}

func (m *Machine) run(ctx context.Context, cpu int) {
	defer m.wg.Done()
	c := &m.cpus[cpu]
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.line:
		}
		c.serviced.Add(1)
		c.inIRQ.Store(true)
		m.handler.HandleInterrupt(cpu)
		c.inIRQ.Store(false)
	}
}

// Close stops every processor, waiting for any in-progress handler to
// return. Interrupts sent after Close are dropped. Safe to call repeatedly.
func (m *Machine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.state.TryTransition(StateAwake, StateTerminated):
		return nil
	case m.state.TryTransition(StateRunning, StateTerminating):
	default:
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.state.Store(StateTerminated)

	m.logger.Info().
		Uint64(`interrupts`, m.Interrupts()).
		Log(`machine stopped`)

	return nil
}

// SendInterrupt latches an interrupt on cpu. Never blocks.
func (m *Machine) SendInterrupt(cpu int) {
	c := m.cpu(cpu)
	if m.hook != nil {
		m.hook(cpu)
	}
	c.sent.Add(1)
	select {
	case c.line <- struct{}{}:
	default:
	}
}

// PreemptDisable increments the preemption depth of cpu. Preemption is not
// simulated, the depth is only tracked, see PreemptCount.
func (m *Machine) PreemptDisable(cpu int) {
	m.cpu(cpu).preempt.Add(1)
}

// PreemptEnable decrements the preemption depth of cpu, panicking with
// ErrPreemptUnderflow if it was not disabled.
func (m *Machine) PreemptEnable(cpu int) {
	if m.cpu(cpu).preempt.Add(-1) < 0 {
		panic(fmt.Errorf("%w: cpu %d", ErrPreemptUnderflow, cpu))
	}
}

// PreemptCount returns the preemption depth of cpu.
func (m *Machine) PreemptCount(cpu int) int {
	return int(m.cpu(cpu).preempt.Load())
}

// MailboxFull counts back-pressure events against cpu.
func (m *Machine) MailboxFull(cpu int) {
	m.cpu(cpu).mailboxFull.Add(1)
}

// MailboxFullCount returns the number of MailboxFull events for cpu.
func (m *Machine) MailboxFullCount(cpu int) uint64 {
	return m.cpu(cpu).mailboxFull.Load()
}

// InInterrupt reports whether cpu is currently inside the Handler.
func (m *Machine) InInterrupt(cpu int) bool {
	return m.cpu(cpu).inIRQ.Load()
}

// Exec runs fn as a task on cpu. Tasks on the same processor run one at a
// time, interrupts for cpu are serviced concurrently with them.
func (m *Machine) Exec(cpu int, fn func()) {
	c := m.cpu(cpu)
	c.run.Lock()
	defer c.run.Unlock()
	fn()
}

// InterruptsSent returns the number of interrupts sent to cpu, including
// those merged into an already latched interrupt.
func (m *Machine) InterruptsSent(cpu int) uint64 {
	return m.cpu(cpu).sent.Load()
}

// InterruptsServiced returns the number of times cpu entered the handler.
func (m *Machine) InterruptsServiced(cpu int) uint64 {
	return m.cpu(cpu).serviced.Load()
}

// Interrupts returns the total number of interrupts sent.
func (m *Machine) Interrupts() (n uint64) {
	for i := range m.cpus {
		n += m.cpus[i].sent.Load()
	}
	return n
}

func (m *Machine) cpu(cpu int) *cpuState {
	if cpu < 0 || cpu >= len(m.cpus) {
		panic(fmt.Sprintf("sim: cpu %d out of range [0, %d)", cpu, len(m.cpus)))
	}
	return &m.cpus[cpu]
}
