package xcall

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Special case - we use 128 bytes for cache line size on all platforms.
func Test_sizeOfCacheLine(t *testing.T) {
	actual := unsafe.Sizeof(cpu.CacheLinePad{})
	if sizeOfCacheLine < actual {
		t.Errorf("sizeOfCacheLine (%d) is less than actual cache line size (%d)", sizeOfCacheLine, actual)
	}
	// must be neatly divisible
	if sizeOfCacheLine%actual != 0 {
		t.Errorf("sizeOfCacheLine (%d) is not a multiple of actual cache line size (%d)", sizeOfCacheLine, actual)
	}
}

func TestSizeOf(t *testing.T) {
	for _, tc := range [...]struct {
		name     string
		expected uintptr
		actual   uintptr
	}{
		{"sizeOfAtomicUint64", sizeOfAtomicUint64, unsafe.Sizeof(atomic.Uint64{})},
		{"sizeOfMailbox", sizeOfMailbox, unsafe.Sizeof(mailbox{})},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if tc.actual != tc.expected {
				t.Errorf("expected %d got %d", tc.expected, tc.actual)
			}
		})
	}
}

func Test_mailboxFitsCacheLine(t *testing.T) {
	if sizeOfMailbox > sizeOfCacheLine {
		t.Errorf("mailbox (%d) exceeds a cache line (%d)", sizeOfMailbox, sizeOfCacheLine)
	}
}

// The hot fields of each processor must not share a cache line.
func Test_percpuPadding(t *testing.T) {
	var p percpu
	pending := unsafe.Offsetof(p.pending)
	mb := unsafe.Offsetof(p.mailbox)
	hardirq := unsafe.Offsetof(p.hardirq)
	pad := unsafe.Sizeof(cpu.CacheLinePad{})
	if pending < pad {
		t.Errorf("pending at offset %d, want >= %d", pending, pad)
	}
	if mb-pending < pad {
		t.Errorf("mailbox is %d bytes after pending, want >= %d", mb-pending, pad)
	}
	if hardirq-mb < pad {
		t.Errorf("hardirq is %d bytes after mailbox, want >= %d", hardirq-mb, pad)
	}
}
