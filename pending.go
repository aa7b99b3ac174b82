// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"math/bits"
)

// mailboxBit is the bit for MailboxHandlerID, within pending word 0.
const mailboxBit = uint64(1) << MailboxHandlerID

// Trigger marks handler id as due on cpu, and interrupts cpu, unless id was
// already pending there.
//
// Triggers coalesce: any number of triggers for the same (id, cpu) before
// cpu services them result in a single invocation. Delivery is at least
// once, never exactly once.
//
// Targeting the local processor is a fatal assertion, see TriggerMulti.
func (l *Local) Trigger(id HandlerID, cpu int) {
	d := l.d
	d.checkHandlerID(`trigger`, l.cpu, id)
	d.checkCPU(`trigger`, cpu)
	if cpu == l.cpu {
		d.assert(`trigger`, l.cpu, id, ErrSelfTarget)
	}
	d.checkRegistered(`trigger`, l.cpu, id)
	d.trigger(id, cpu)
}

// TriggerMulti triggers id on every remote member of set. If the local
// processor is a member, the handler is then invoked inline, without being
// queued or interrupting anything.
//
// Handlers must not call TriggerMulti with their own processor in set.
func (l *Local) TriggerMulti(id HandlerID, set CPUSet) {
	d := l.d
	d.checkHandlerID(`trigger`, l.cpu, id)
	if set.Next(len(d.cpus)-1) >= 0 {
		d.assert(`trigger`, l.cpu, id, ErrCPURange)
	}
	d.checkRegistered(`trigger`, l.cpu, id)

	for cpu := set.Next(-1); cpu >= 0; cpu = set.Next(cpu) {
		if cpu != l.cpu {
			d.trigger(id, cpu)
		}
	}

	if set.Has(l.cpu) {
		l.irqDisable()
		defer l.irqEnable()
		l.invoke(id)
	}
}

// checkRegistered fails fast on a trigger for a free or dead slot, rather
// than on the target, in interrupt context. A bit set for a dead slot could
// land after the target's part of the rendezvous, and survive to run
// whichever handler next claims the id.
func (d *Dispatcher) checkRegistered(op string, cpu int, id HandlerID) {
	if h := d.registry.lookup(id); h == nil || h == deadHandler {
		d.assert(op, cpu, id, ErrUnregisteredHandler)
	}
}

// trigger is the unchecked remote trigger, also used for MailboxHandlerID.
func (d *Dispatcher) trigger(id HandlerID, cpu int) {
	word := &d.cpus[cpu].pending[id/64]
	bit := uint64(1) << (id % 64)

	d.metrics.triggers.Add(1)

	// the plain load avoids contending on the cache line when coalescing
	if word.Load()&bit != 0 || word.Or(bit)&bit != 0 {
		d.metrics.coalesced.Add(1)
		return
	}

	d.metrics.interrupts.Add(1)
	d.platform.SendInterrupt(cpu)
}

// Handle services the local processor's pending work. It is the interrupt
// handler, and must be called only on (by the owner of) the local processor,
// after SendInterrupt. Spurious calls are harmless.
//
// Each non-zero pending word is captured with a single atomic swap, so bits
// that arrive while handlers run are left for the next call (the platform
// will have been poked again). Async handlers run in id order, the mailbox
// is drained last. Returns the number of handlers and messages run.
func (l *Local) Handle() (n int) {
	l.irqDisable()
	defer l.irqEnable()

	p := &l.d.cpus[l.cpu]
	var mail bool
	for w := range p.pending {
		if p.pending[w].Load() == 0 {
			continue
		}
		set := p.pending[w].Swap(0)
		if w == 0 && set&mailboxBit != 0 {
			mail = true
			set &^= mailboxBit
		}
		n += l.invokeAll(w, set)
	}

	if mail {
		n += l.drain()
	}

	return n
}

// flushPending runs every async handler currently pending on the local
// processor, leaving the mailbox bit alone. Caller must have interrupts
// disabled, i.e. be on the interrupt path or hold irqDisable.
func (l *Local) flushPending() (n int) {
	p := &l.d.cpus[l.cpu]
	for w := range p.pending {
		if p.pending[w].Load()&^mailboxBitIn(w) == 0 {
			continue
		}
		var set uint64
		if w == 0 {
			set = p.pending[w].And(mailboxBit) &^ mailboxBit
		} else {
			set = p.pending[w].Swap(0)
		}
		n += l.invokeAll(w, set)
	}
	return n
}

func mailboxBitIn(word int) uint64 {
	if word == 0 {
		return mailboxBit
	}
	return 0
}

func (l *Local) invokeAll(word int, set uint64) (n int) {
	for set != 0 {
		b := bits.TrailingZeros64(set)
		set &= set - 1
		if l.invoke(HandlerID(word*64 + b)) {
			n++
		}
	}
	return n
}

// invoke runs a single handler, reporting false for a dead handler.
func (l *Local) invoke(id HandlerID) bool {
	h := l.d.registry.lookup(id)
	switch h {
	case nil:
		l.d.assert(`handle`, l.cpu, id, ErrUnregisteredHandler)
	case deadHandler:
		return false
	}
	h.fn(h.arg)
	l.d.metrics.handled.Add(1)
	return true
}
