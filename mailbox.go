// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"sync/atomic"
)

// mailbox is a fixed array of message slots, nil when empty. Any processor
// may claim an empty slot (CAS nil -> msg), only the owner empties them.
//
// Slots are claimed by linear scan rather than through a ring: at this
// capacity a scan touches one cache line, and there are no indexes to
// contend on. Throughput under heavy contention is not a goal.
type mailbox struct {
	slots [MailboxSlots]atomic.Pointer[Message]
}

// put claims a slot in the mailbox of cpu. It never fails: while every slot
// is taken it counts the miss and retries with backoff, relying on cpu to
// drain its mailbox, which it will, since every occupant was triggered.
func (d *Dispatcher) put(cpu int, msg *Message) {
	mb := &d.cpus[cpu].mailbox
	var b backoff
	for {
		for i := range mb.slots {
			if mb.slots[i].Load() == nil && mb.slots[i].CompareAndSwap(nil, msg) {
				return
			}
		}
		d.mailboxFull(cpu)
		b.pause()
	}
}

func (d *Dispatcher) mailboxFull(cpu int) {
	retries := d.metrics.mailboxFull.Add(1)
	if d.counters != nil {
		d.counters.MailboxFull(cpu)
	}
	d.logMailboxFull(cpu, retries)
}

// drain runs and completes every message in the local mailbox. Owner only,
// with interrupts disabled.
func (l *Local) drain() (n int) {
	mb := &l.d.cpus[l.cpu].mailbox
	for i := range mb.slots {
		if mb.slots[i].Load() == nil {
			continue
		}
		msg := mb.slots[i].Swap(nil)
		if msg == nil {
			continue
		}
		l.deliver(msg)
		n++
	}
	return n
}

// deliver runs msg, then releases the caller's reference to it. After the
// decrement msg may already be reused or freed by its sender.
func (l *Local) deliver(msg *Message) {
	if msg.onCPU != nil {
		msg.onCPU(l)
	} else {
		msg.Func(msg.Arg)
	}
	l.d.metrics.delivered.Add(1)
	msg.pending.Add(-1)
}
