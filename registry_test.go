package xcall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_assignsLowestFreeID(t *testing.T) {
	d, _ := newManualDispatcher(t, 1)

	a := d.Register(func(any) {}, nil)
	b := d.Register(func(any) {}, nil)
	require.Equal(t, HandlerID(1), a)
	require.Equal(t, HandlerID(2), b)

	d.Local(0).Unregister(a)
	assert.Equal(t, a, d.Register(func(any) {}, nil), "freed id should be reused")
}

func TestRegister_exhaustion(t *testing.T) {
	buf := new(syncBuffer)
	d, _ := newManualDispatcher(t, 2, WithLogger(newTestLogger(buf)))

	counts := make([]int, MaxHandlers)
	ids := make([]HandlerID, 0, MaxHandlers-1)
	for i := 1; i < MaxHandlers; i++ {
		id := d.Register(func(arg any) { counts[arg.(int)]++ }, i)
		require.NotZero(t, id, "registration %d", i)
		ids = append(ids, id)
	}

	require.Equal(t, HandlerID(0), d.Register(func(any) {}, nil), "registry should be full")
	require.Equal(t, HandlerID(0), d.Register(func(any) {}, nil), "registry should still be full")

	m := d.Metrics()
	assert.Equal(t, uint64(MaxHandlers-1), m.Registered)
	assert.Equal(t, uint64(2), m.RegistryFull)
	assert.Contains(t, buf.String(), `handler registry full`)

	// every prior registration is intact, with its own arg
	local := d.Local(0)
	for _, id := range ids {
		local.Trigger(id, 1)
	}
	require.Equal(t, MaxHandlers-1, d.Local(1).Handle())
	for i := 1; i < MaxHandlers; i++ {
		assert.Equal(t, 1, counts[i], "handler %d", i)
	}
}

func TestRegister_nilFunc(t *testing.T) {
	d, _ := newManualDispatcher(t, 1)
	err := requireAssertion(t, ErrNilFunc, func() { d.Register(nil, nil) })
	assert.Equal(t, `register`, err.Op)
	assert.Equal(t, -1, err.CPU)
}

func TestUnregister_assertions(t *testing.T) {
	d, _ := newManualDispatcher(t, 1)
	local := d.Local(0)

	requireAssertion(t, ErrHandlerRange, func() { local.Unregister(MailboxHandlerID) })
	requireAssertion(t, ErrHandlerRange, func() { local.Unregister(MaxHandlers) })
	requireAssertion(t, ErrUnregisteredHandler, func() { local.Unregister(5) })

	id := d.Register(func(any) {}, nil)
	local.Unregister(id)
	requireAssertion(t, ErrUnregisteredHandler, func() { local.Unregister(id) })
}

func TestUnregister_dead(t *testing.T) {
	d, _ := newManualDispatcher(t, 1)
	id := d.Register(func(any) {}, nil)

	// simulates an unregister of id, still in its rendezvous
	d.registry.slots[id].Store(deadHandler)

	err := requireAssertion(t, ErrDoubleUnregister, func() { d.Local(0).Unregister(id) })
	assert.Equal(t, id, err.ID)
	assert.Equal(t, 0, err.CPU)

	// the slot is not available until the first unregister completes
	assert.NotEqual(t, id, d.Register(func(any) {}, nil))
}

func TestUnregister_metrics(t *testing.T) {
	buf := new(syncBuffer)
	d, _ := newManualDispatcher(t, 1, WithLogger(newTestLogger(buf)))

	id := d.Register(func(any) {}, nil)
	d.Local(0).Unregister(id)

	m := d.Metrics()
	assert.Equal(t, uint64(1), m.Registered)
	assert.Equal(t, uint64(1), m.Unregistered)
	assert.Equal(t, uint64(1), m.Rendezvous)
	assert.Nil(t, d.registry.lookup(id))

	out := buf.String()
	assert.Contains(t, out, `handler registered`)
	assert.Contains(t, out, `handler unregistered`)
	assert.Contains(t, out, `rendezvous complete`)
}
