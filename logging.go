// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

// assert fails fast, logging the failure before panicking with an
// *AssertionError.
func (d *Dispatcher) assert(op string, cpu int, id HandlerID, err error) {
	e := &AssertionError{Op: op, CPU: cpu, ID: id, Err: err}
	d.logger.Crit().
		Str(`op`, op).
		Int(`cpu`, cpu).
		Uint64(`id`, uint64(id)).
		Err(err).
		Log(`xcall assertion failed`)
	panic(e)
}

func (d *Dispatcher) logRegistryFull() {
	d.logger.Warning().
		Int(`capacity`, MaxHandlers-1).
		Log(`handler registry full`)
}

func (d *Dispatcher) logRegistered(id HandlerID) {
	d.logger.Debug().
		Uint64(`id`, uint64(id)).
		Log(`handler registered`)
}

func (d *Dispatcher) logUnregistered(cpu int, id HandlerID) {
	d.logger.Debug().
		Int(`cpu`, cpu).
		Uint64(`id`, uint64(id)).
		Log(`handler unregistered`)
}

// logMailboxFull is rate limited per target cpu, as it may be called in a
// tight loop while a sender is back-pressured.
func (d *Dispatcher) logMailboxFull(cpu int, retries uint64) {
	b := d.logger.Warning()
	if !b.Enabled() {
		return
	}
	if _, ok := d.mailboxLimiter.Allow(cpu); !ok {
		b.Release()
		return
	}
	b.Int(`cpu`, cpu).
		Uint64(`retries`, retries).
		Log(`mailbox full`)
}
