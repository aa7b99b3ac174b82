package xcall

import (
	"errors"
	"testing"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type preemptPlatform struct {
	*manualPlatform
	depth int
}

func (p *preemptPlatform) PreemptDisable(int) { p.depth++ }
func (p *preemptPlatform) PreemptEnable(int)  { p.depth-- }
func (p *preemptPlatform) MailboxFull(int)    {}

func TestNew_errors(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilPlatform)

	for _, n := range []int{0, -1, MaxCPUs + 1} {
		_, err := New(newManualPlatform(n))
		assert.ErrorIs(t, err, ErrCPUCount, "n=%d", n)
	}

	d, err := New(newManualPlatform(MaxCPUs))
	require.NoError(t, err)
	assert.Equal(t, MaxCPUs, d.NumCPU())
	assert.Equal(t, AllCPUs(MaxCPUs), d.Online())
}

func TestNew_optionError(t *testing.T) {
	sentinel := errors.New("bad option")
	_, err := New(newManualPlatform(1), &optionImpl{func(*dispatcherOptions) error { return sentinel }})
	assert.ErrorIs(t, err, sentinel)
}

func TestResolveDispatcherOptions(t *testing.T) {
	t.Run(`defaults`, func(t *testing.T) {
		cfg, err := resolveDispatcherOptions(newManualPlatform(1), nil)
		require.NoError(t, err)
		assert.Nil(t, cfg.logger)
		assert.Nil(t, cfg.preempter)
		assert.Nil(t, cfg.counters)
		assert.Nil(t, cfg.mailboxLimiter, "no limiter without a logger")
	})

	t.Run(`nil options skipped`, func(t *testing.T) {
		_, err := resolveDispatcherOptions(newManualPlatform(1), []Option{nil, WithLogger(nil), nil})
		require.NoError(t, err)
	})

	t.Run(`platform capabilities`, func(t *testing.T) {
		p := &preemptPlatform{manualPlatform: newManualPlatform(1)}
		cfg, err := resolveDispatcherOptions(p, nil)
		require.NoError(t, err)
		assert.Same(t, p, cfg.preempter)
		assert.Same(t, p, cfg.counters)
	})

	t.Run(`explicit overrides platform`, func(t *testing.T) {
		p := &preemptPlatform{manualPlatform: newManualPlatform(1)}
		other := &preemptPlatform{manualPlatform: newManualPlatform(1)}
		cfg, err := resolveDispatcherOptions(p, []Option{WithPreempter(other), WithCounters(other)})
		require.NoError(t, err)
		assert.Same(t, other, cfg.preempter)
		assert.Same(t, other, cfg.counters)
	})

	t.Run(`default limiter`, func(t *testing.T) {
		cfg, err := resolveDispatcherOptions(newManualPlatform(1), []Option{WithLogger(newTestLogger(new(syncBuffer)))})
		require.NoError(t, err)
		assert.NotNil(t, cfg.mailboxLimiter)

		other, err := resolveDispatcherOptions(newManualPlatform(2), []Option{WithLogger(newTestLogger(new(syncBuffer)))})
		require.NoError(t, err)
		assert.Same(t, cfg.mailboxLimiter, other.mailboxLimiter, "default limiter should be shared")
	})

	t.Run(`custom limiter`, func(t *testing.T) {
		limiter := catrate.NewLimiter(map[time.Duration]int{time.Minute: 1})
		cfg, err := resolveDispatcherOptions(newManualPlatform(1), []Option{
			WithLogger(newTestLogger(new(syncBuffer))),
			WithMailboxFullLimiter(limiter),
		})
		require.NoError(t, err)
		assert.Same(t, limiter, cfg.mailboxLimiter)
	})

	t.Run(`limiter disabled`, func(t *testing.T) {
		cfg, err := resolveDispatcherOptions(newManualPlatform(1), []Option{
			WithLogger(newTestLogger(new(syncBuffer))),
			WithMailboxFullLimiter(nil),
		})
		require.NoError(t, err)
		assert.Nil(t, cfg.mailboxLimiter)
	})
}

func TestCall_preempterBalanced(t *testing.T) {
	p := &preemptPlatform{manualPlatform: newManualPlatform(1)}
	d, err := New(p)
	require.NoError(t, err)

	var depth int
	d.Local(0).Call(func(any) { depth = p.depth }, nil, d.Online())
	assert.Equal(t, 1, depth)
	assert.Zero(t, p.depth)
}
