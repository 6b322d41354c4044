package guardrail

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowsBelowThreshold(t *testing.T) {
	p := New(3)

	p.RecordFailure()
	p.RecordFailure()

	d, first := p.Evaluate()
	assert.True(t, d.Allow)
	assert.False(t, first)
	assert.Equal(t, 2, d.ConsecutiveFailures)
}

func TestBlocksAtThreshold(t *testing.T) {
	p := New(3)
	for i := 0; i < 3; i++ {
		p.RecordFailure()
	}

	d, first := p.Evaluate()
	assert.False(t, d.Allow)
	assert.True(t, first, "first blocking evaluation signals the intervention")
	assert.Equal(t, 3, d.ConsecutiveFailures)
}

func TestSignalsOncePerStreak(t *testing.T) {
	p := New(2)
	p.RecordFailure()
	p.RecordFailure()

	_, first := p.Evaluate()
	assert.True(t, first)

	// Same streak: still blocked, no duplicate signal.
	d, first := p.Evaluate()
	assert.False(t, d.Allow)
	assert.False(t, first)

	// A success breaks the streak and re-arms the signal.
	p.RecordSuccess()
	d, _ = p.Evaluate()
	assert.True(t, d.Allow)

	p.RecordFailure()
	p.RecordFailure()
	_, first = p.Evaluate()
	assert.True(t, first, "a new streak signals again")
}

func TestSuccessResetsCounter(t *testing.T) {
	p := New(3)
	p.RecordFailure()
	p.RecordFailure()
	p.RecordSuccess()

	assert.Zero(t, p.Failures())
	d, _ := p.Evaluate()
	assert.True(t, d.Allow)
}

func TestResetUnblocks(t *testing.T) {
	p := New(1)
	p.RecordFailure()

	d, _ := p.Evaluate()
	assert.False(t, d.Allow)

	p.Reset()
	d, _ = p.Evaluate()
	assert.True(t, d.Allow)
	assert.Zero(t, d.ConsecutiveFailures)
}

func TestThresholdDefaultsWhenInvalid(t *testing.T) {
	assert.Equal(t, DefaultFailureThreshold, New(0).Threshold())
	assert.Equal(t, DefaultFailureThreshold, New(-5).Threshold())
	assert.Equal(t, 100, New(100).Threshold(), "automated runs may raise the threshold")
}

func TestConcurrentAccess(t *testing.T) {
	p := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.RecordFailure()
				p.Evaluate()
				_ = p.Failures()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, p.Failures())
}
