// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package xcall implements cross-processor messaging: letting any processor
// cause a function to run on another, either fire-and-forget (an
// asynchronous, IPI-style trigger) or wait-for-completion (a synchronous
// cross-call, as unicast, multicast or broadcast).
//
// # Architecture
//
// A [Dispatcher] holds all state, allocated once by [New] and sized by the
// processor count of the [Platform]:
//
//   - A handler table of [MaxHandlers] slots, indexed by [HandlerID]. Id 0
//     ([MailboxHandlerID]) is reserved for draining the mailbox.
//   - Per processor, a pending bitmask, one bit per handler id. Any processor
//     may set bits, only the owner clears them, via an atomic swap.
//   - Per processor, a mailbox of [MailboxSlots] message slots. Any processor
//     may claim a free slot (compare-and-swap), only the owner drains them.
//
// Synchronous messaging is layered on top: a [Message] is placed in the
// target's mailbox, and the reserved id is triggered.
//
// # Processors
//
// The current processor is explicit. [Dispatcher.Local] returns the [Local]
// view for a processor index, and operations that target "other" processors
// are its methods. The [Platform] delivers interrupts by calling
// [Dispatcher.HandleInterrupt] on the target. Package sim provides a
// simulated multi-processor platform, where each processor is a goroutine.
//
// # Delivery Semantics
//
//   - [Local.Trigger] is at-least-once: triggers for the same handler and
//     target coalesce, until the target services them.
//   - Messages are exactly-once per target. Effects of [Message.Func] on every
//     target happen before [Wait] returns.
//   - Nothing times out. A processor that stops servicing interrupts blocks
//     its senders, and anyone waiting on it, forever.
//
// # Error Handling
//
// A full handler table is reported by [Dispatcher.Register] returning 0.
// A full mailbox is not an error, senders spin until a slot frees. Misuse,
// such as a processor targeting itself, reusing an in-flight [Message], or
// triggering an unregistered handler, panics with an [*AssertionError].
//
// # Usage
//
//	m, _ := sim.New(sim.WithCPUs(4))
//	d, _ := xcall.New(m)
//	_ = m.Start(ctx, d)
//	defer m.Close()
//
//	l := d.Local(0)
//	msg := xcall.Message{Func: func(arg any) { /* runs on cpu 2 */ }}
//	l.Unicast(&msg, 2)
//	xcall.Wait(&msg)
package xcall
