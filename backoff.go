// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"runtime"
)

// backoffSpinRounds is the number of busy-wait rounds, each twice as long as
// the last, before every further pause yields the processor instead.
const backoffSpinRounds = 6

// backoff implements incremental spin backoff. The zero value is ready.
type backoff struct {
	rounds int
}

// pause waits a little longer than the previous call did.
func (b *backoff) pause() {
	if b.rounds < backoffSpinRounds {
		for i := 0; i < 4<<b.rounds; i++ {
			cpuRelax()
		}
		b.rounds++
		return
	}
	runtime.Gosched()
}

// cpuRelax is a spin-loop hint. Go exposes no PAUSE/YIELD instruction, so it
// is a non-inlined call, enough to keep the loop from being optimised away.
//
//go:noinline
func cpuRelax() {}
