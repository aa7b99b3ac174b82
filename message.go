// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"sync/atomic"
)

// Message is a synchronous cross-call: Func(Arg), run once on each target.
//
// The caller owns the Message, and must keep it unchanged from dispatch until
// [Wait] returns (or [Message.Done] reports true). Dispatching it again before
// then is a fatal assertion. The zero value, with Func set, is ready to use.
type Message struct {
	// Func is called on every target processor. It must be non-nil.
	Func Func
	// Arg is passed to Func, shared (read-only) by all targets.
	Arg any

	// onCPU, if set, is used instead of Func, for internal messages that
	// need to know which processor they are running on.
	onCPU func(l *Local)

	// pending is the number of targets yet to complete.
	pending atomic.Int64
}

// Pending returns the number of targets that have not yet run the message.
func (m *Message) Pending() int64 {
	return m.pending.Load()
}

// Done reports whether no target has yet to run the message, i.e. a
// dispatched message is complete.
func (m *Message) Done() bool {
	return m.pending.Load() == 0
}

// Unicast runs msg on cpu, which must not be the local processor. Returns
// immediately, use [Wait] to wait for completion.
func (l *Local) Unicast(msg *Message, cpu int) {
	d := l.d
	d.checkCPU(`unicast`, cpu)
	if cpu == l.cpu {
		d.assert(`unicast`, l.cpu, 0, ErrSelfTarget)
	}
	l.publish(`unicast`, msg, 1)
	d.put(cpu, msg)
	d.trigger(MailboxHandlerID, cpu)
}

// Multicast runs msg on every member of set. Remote members are mailed and
// interrupted first; if the local processor is a member, msg then runs
// inline, before Multicast returns. Returns without waiting for the remote
// members, use [Wait].
func (l *Local) Multicast(msg *Message, set CPUSet) {
	l.multicast(`multicast`, msg, set, true)
}

// Broadcast runs msg on every processor, see [Local.Multicast].
func (l *Local) Broadcast(msg *Message) {
	l.multicast(`broadcast`, msg, l.d.online, true)
}

func (l *Local) multicast(op string, msg *Message, set CPUSet, inline bool) {
	d := l.d
	if set.Next(len(d.cpus)-1) >= 0 {
		d.assert(op, l.cpu, 0, ErrCPURange)
	}

	self := set.Has(l.cpu)
	n := set.Len()
	if self {
		n--
	}
	l.publish(op, msg, int64(n))

	for cpu := set.Next(-1); cpu >= 0; cpu = set.Next(cpu) {
		if cpu == l.cpu {
			continue
		}
		d.put(cpu, msg)
		d.trigger(MailboxHandlerID, cpu)
	}

	if self && inline {
		msg.Func(msg.Arg)
	}
}

// publish sets the pending count. The CAS from zero both detects reuse of an
// in-flight message, and orders the writes to Func and Arg before the count,
// and before any mailbox slot referencing msg, becomes visible.
func (l *Local) publish(op string, msg *Message, n int64) {
	if msg.Func == nil && msg.onCPU == nil {
		l.d.assert(op, l.cpu, 0, ErrNilFunc)
	}
	// the load catches reuse when n is zero, i.e. a self-only multicast
	if msg.pending.Load() != 0 || !msg.pending.CompareAndSwap(0, n) {
		l.d.assert(op, l.cpu, 0, ErrMessageInFlight)
	}
	l.d.metrics.messages.Add(1)
}

// Wait spins, with backoff, until every target of msg has run it. There is
// no timeout: a target that never services its interrupts blocks Wait
// forever. All effects of msg.Func, on every target, happen before Wait
// returns.
//
// Callers should have preemption disabled from dispatch until Wait returns,
// see [Local.Call].
func Wait(msg *Message) {
	var b backoff
	for msg.pending.Load() != 0 {
		b.pause()
	}
}

// Call runs fn(arg) on every member of set, and waits for all of them,
// with preemption disabled on the local processor throughout.
func (l *Local) Call(fn Func, arg any, set CPUSet) {
	msg := Message{Func: fn, Arg: arg}
	l.preemptDisable()
	defer l.preemptEnable()
	l.Multicast(&msg, set)
	Wait(&msg)
}

// Rendezvous returns once every processor, including the local one, has
// serviced all asynchronous triggers pending when it was called, and has
// finished any handler that was then running.
//
// Must not be called from handler context.
func (l *Local) Rendezvous() {
	msg := Message{onCPU: (*Local).rendezvous}
	l.multicast(`rendezvous`, &msg, l.d.online, false)

	// the local part runs in this (task) context, and must exclude the
	// local interrupt path, the same as a remote processor's handler would
	l.irqDisable()
	l.rendezvous()
	l.irqEnable()

	Wait(&msg)
	l.d.metrics.rendezvous.Add(1)
	l.d.logger.Debug().
		Int(`cpu`, l.cpu).
		Log(`rendezvous complete`)
}

// rendezvous is the per-processor part of Rendezvous. It runs with
// interrupts disabled, so no handler is mid-flight on l.
func (l *Local) rendezvous() {
	l.flushPending()
}
