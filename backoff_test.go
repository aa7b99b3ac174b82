package xcall

import (
	"testing"
)

func TestBackoff_pause(t *testing.T) {
	var b backoff
	for i := 0; i < backoffSpinRounds; i++ {
		if b.rounds != i {
			t.Fatalf("expected %d rounds got %d", i, b.rounds)
		}
		b.pause()
	}
	// saturates, yielding from then on
	b.pause()
	b.pause()
	if b.rounds != backoffSpinRounds {
		t.Errorf("expected %d rounds got %d", backoffSpinRounds, b.rounds)
	}
}
