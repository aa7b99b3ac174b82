// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"sync/atomic"
)

// Metrics is a point-in-time snapshot of dispatcher counters, see
// [Dispatcher.Metrics]. Counters are monotonic, and individually (not
// collectively) consistent.
type Metrics struct {
	// Registered counts successful Register calls.
	Registered uint64
	// RegistryFull counts Register calls that found no free slot.
	RegistryFull uint64
	// Unregistered counts completed Unregister calls.
	Unregistered uint64

	// Triggers counts remote trigger attempts (including coalesced).
	Triggers uint64
	// Coalesced counts triggers that found their bit already pending.
	Coalesced uint64
	// Interrupts counts calls to Platform.SendInterrupt.
	Interrupts uint64
	// Handled counts asynchronous handler invocations, remote or inline.
	Handled uint64

	// Messages counts dispatched messages (unicast, multicast, broadcast).
	Messages uint64
	// Delivered counts messages drained from mailboxes and executed.
	Delivered uint64
	// MailboxFull counts full mailbox scans that had to be retried.
	MailboxFull uint64

	// Rendezvous counts completed rendezvous.
	Rendezvous uint64
}

// metrics holds the live counters, all updated lock-free.
type metrics struct {
	registered   atomic.Uint64
	registryFull atomic.Uint64
	unregistered atomic.Uint64
	triggers     atomic.Uint64
	coalesced    atomic.Uint64
	interrupts   atomic.Uint64
	handled      atomic.Uint64
	messages     atomic.Uint64
	delivered    atomic.Uint64
	mailboxFull  atomic.Uint64
	rendezvous   atomic.Uint64
}

func (m *metrics) snapshot() Metrics {
	return Metrics{
		Registered:   m.registered.Load(),
		RegistryFull: m.registryFull.Load(),
		Unregistered: m.unregistered.Load(),
		Triggers:     m.triggers.Load(),
		Coalesced:    m.coalesced.Load(),
		Interrupts:   m.interrupts.Load(),
		Handled:      m.handled.Load(),
		Messages:     m.messages.Load(),
		Delivered:    m.delivered.Load(),
		MailboxFull:  m.mailboxFull.Load(),
		Rendezvous:   m.rendezvous.Load(),
	}
}
