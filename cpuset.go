// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package xcall

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// MaxCPUs is the largest number of processors supported.
const MaxCPUs = 256

const cpuSetWords = MaxCPUs / 64

// CPUSet is a fixed size set of processor indexes. The zero value is empty.
// It is a value type, and is safe to copy.
type CPUSet struct {
	w [cpuSetWords]uint64
}

// NewCPUSet returns a set containing the given processors.
func NewCPUSet(cpus ...int) CPUSet {
	var s CPUSet
	for _, cpu := range cpus {
		s.Add(cpu)
	}
	return s
}

// AllCPUs returns the set [0, n).
func AllCPUs(n int) CPUSet {
	var s CPUSet
	for cpu := 0; cpu < n; cpu++ {
		s.Add(cpu)
	}
	return s
}

// Add inserts cpu, panicking if it is not within [0, MaxCPUs).
func (s *CPUSet) Add(cpu int) {
	if cpu < 0 || cpu >= MaxCPUs {
		panic(fmt.Errorf("%w: %d", ErrCPURange, cpu))
	}
	s.w[cpu/64] |= 1 << (uint(cpu) % 64)
}

// Remove deletes cpu, if present.
func (s *CPUSet) Remove(cpu int) {
	if cpu < 0 || cpu >= MaxCPUs {
		return
	}
	s.w[cpu/64] &^= 1 << (uint(cpu) % 64)
}

// Has reports whether cpu is a member.
func (s CPUSet) Has(cpu int) bool {
	if cpu < 0 || cpu >= MaxCPUs {
		return false
	}
	return s.w[cpu/64]&(1<<(uint(cpu)%64)) != 0
}

// Len returns the number of members.
func (s CPUSet) Len() (n int) {
	for _, w := range s.w {
		n += bits.OnesCount64(w)
	}
	return
}

// Empty reports whether the set has no members.
func (s CPUSet) Empty() bool {
	return s == CPUSet{}
}

// Next returns the smallest member greater than after, or -1. Iterate with:
//
//	for cpu := s.Next(-1); cpu >= 0; cpu = s.Next(cpu) {
//	}
func (s CPUSet) Next(after int) int {
	cpu := after + 1
	if cpu < 0 {
		cpu = 0
	}
	for i := cpu / 64; i < cpuSetWords; i++ {
		w := s.w[i]
		if i == cpu/64 {
			w &= ^uint64(0) << (uint(cpu) % 64)
		}
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// String formats the set like {0,2,3}.
func (s CPUSet) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for cpu := s.Next(-1); cpu >= 0; cpu = s.Next(cpu) {
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(cpu))
	}
	b.WriteByte('}')
	return b.String()
}
