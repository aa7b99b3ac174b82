// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

// Platform is the environment a [Dispatcher] runs on.
type Platform interface {
	// NumCPU returns the number of online processors. It is consulted once,
	// by [New], and must remain stable for the life of the dispatcher.
	NumCPU() int

	// SendInterrupt pokes the given processor, which must eventually call
	// [Dispatcher.HandleInterrupt] (or [Local.Handle]) for itself. It carries
	// no payload: all state is published before it is called. Delivering
	// more interrupts than were sent is harmless, delivering fewer is not.
	SendInterrupt(cpu int)
}

// Preempter pins the calling task to its processor. It is optional, see
// [WithPreempter]. If the [Platform] implements it, it is used by default.
type Preempter interface {
	PreemptDisable(cpu int)
	PreemptEnable(cpu int)
}

// Counters receives observability events. It is optional, see
// [WithCounters]. If the [Platform] implements it, it is used by default.
type Counters interface {
	// MailboxFull is called each time a sender scans the full mailbox of
	// the given processor without claiming a slot.
	MailboxFull(cpu int)
}
