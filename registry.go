// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"sync"
	"sync/atomic"
)

// handler is one registered {func, arg} pair. Slots hold pointers, so that a
// reader on the interrupt path observes either the whole pair or nothing.
type handler struct {
	fn  Func
	arg any
}

// deadHandler marks a slot that is being unregistered. Invoking it is a
// no-op, and the slot may not be reused until the rendezvous completes.
var deadHandler = &handler{fn: func(any) {}}

// registry is the handler table. Mutation is serialized by mu, lookups (from
// the interrupt path) are lock-free.
//
// Slot 0 is never populated, see MailboxHandlerID.
type registry struct {
	mu    sync.Mutex
	slots [MaxHandlers]atomic.Pointer[handler]
}

func (r *registry) lookup(id HandlerID) *handler {
	return r.slots[id].Load()
}

// Register installs fn(arg) as an asynchronous handler, returning its id.
//
// If the table is full it logs a warning and returns 0, which is never a
// valid id. The caller decides how to escalate.
func (d *Dispatcher) Register(fn Func, arg any) HandlerID {
	if fn == nil {
		d.assert(`register`, -1, 0, ErrNilFunc)
	}

	r := &d.registry
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := HandlerID(1); id < MaxHandlers; id++ {
		if r.slots[id].Load() != nil {
			continue
		}
		r.slots[id].Store(&handler{fn: fn, arg: arg})
		d.metrics.registered.Add(1)
		d.logRegistered(id)
		return id
	}

	d.metrics.registryFull.Add(1)
	d.logRegistryFull()
	return InvalidHandlerID
}

// Unregister retires the handler id. It blocks until every processor has
// passed a rendezvous, so once it returns no invocation of the old handler is
// pending or running anywhere, and id may be handed out again by Register.
//
// Triggers for id that are still pending when Unregister starts either run
// first, or become no-ops. Triggering id once Unregister has started is a
// fatal assertion, callers must stop triggering an id before retiring it.
// Unregistering an id that is not registered, or one that is already being
// unregistered, is a fatal assertion.
//
// Must not be called from handler context.
func (l *Local) Unregister(id HandlerID) {
	d := l.d
	d.checkHandlerID(`unregister`, l.cpu, id)

	r := &d.registry
	r.mu.Lock()
	switch r.slots[id].Load() {
	case nil:
		r.mu.Unlock()
		d.assert(`unregister`, l.cpu, id, ErrUnregisteredHandler)
	case deadHandler:
		r.mu.Unlock()
		d.assert(`unregister`, l.cpu, id, ErrDoubleUnregister)
	}
	r.slots[id].Store(deadHandler)
	r.mu.Unlock()

	l.Rendezvous()

	r.mu.Lock()
	r.slots[id].Store(nil)
	r.mu.Unlock()

	d.metrics.unregistered.Add(1)
	d.logUnregistered(l.cpu, id)
}
