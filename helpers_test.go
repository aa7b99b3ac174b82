package xcall

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-xcall/sim"
)

const (
	eventuallyWait = 5 * time.Second
	eventuallyTick = time.Millisecond
)

// manualPlatform records interrupts, without delivering them. Tests drive
// the interrupt path explicitly, via Local.Handle.
type manualPlatform struct {
	mu   sync.Mutex
	sent []int
	n    int
}

func newManualPlatform(n int) *manualPlatform {
	return &manualPlatform{n: n}
}

func (p *manualPlatform) NumCPU() int { return p.n }

func (p *manualPlatform) SendInterrupt(cpu int) {
	p.mu.Lock()
	p.sent = append(p.sent, cpu)
	p.mu.Unlock()
}

func (p *manualPlatform) Sent() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.sent...)
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger(buf *syncBuffer) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(buf), stumpy.WithTimeField(``)),
		stumpy.L.WithLevel(logiface.LevelTrace),
	).Logger()
}

func newManualDispatcher(t *testing.T, n int, opts ...Option) (*Dispatcher, *manualPlatform) {
	t.Helper()
	p := newManualPlatform(n)
	d, err := New(p, opts...)
	require.NoError(t, err)
	return d, p
}

// newSimDispatcher returns a dispatcher running on a started machine, which
// is stopped on cleanup.
func newSimDispatcher(t *testing.T, n int, opts ...Option) (*Dispatcher, *sim.Machine) {
	t.Helper()
	m, err := sim.New(sim.WithCPUs(n))
	require.NoError(t, err)
	d, err := New(m, opts...)
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background(), d))
	t.Cleanup(func() { _ = m.Close() })
	return d, m
}

// requireAssertion fails the test unless fn panics with an *AssertionError
// wrapping target.
func requireAssertion(t *testing.T, target error, fn func()) *AssertionError {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	require.NotNil(t, recovered, "expected panic")
	err, ok := recovered.(*AssertionError)
	require.Truef(t, ok, "unexpected panic value: %#v", recovered)
	require.Truef(t, errors.Is(err, target), "expected %v, got %v", target, err)
	return err
}

// runOn runs fn on cpu of m as a task, returning a channel closed once it
// completes.
func runOn(m *sim.Machine, cpu int, fn func()) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Exec(cpu, fn)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(eventuallyWait):
		t.Fatal("timed out")
	}
}
