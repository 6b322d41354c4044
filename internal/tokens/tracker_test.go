package tokens

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CodexForgeBR/module-loop/internal/session"
)

var testID = session.NewID("fizzbuzz", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), 1)

func TestRecordUsageAccumulates(t *testing.T) {
	tr := NewTracker(testID)

	tr.RecordUsage(Usage{InputTokens: 100, OutputTokens: 250})
	tr.RecordUsage(Usage{InputTokens: 50, OutputTokens: 25, PremiumRequest: true})
	tr.RecordIteration()
	tr.RecordIteration()

	m := tr.Snapshot()
	assert.Equal(t, testID, m.SessionID)
	assert.Equal(t, int64(150), m.InputTokens)
	assert.Equal(t, int64(275), m.OutputTokens)
	assert.Equal(t, 1, m.PremiumRequests)
	assert.Equal(t, 2, m.Iterations)
}

// TestRestoreKeepsResumedTotals covers the resume contract: metrics
// after a restore equal metrics before the process restarted.
func TestRestoreKeepsResumedTotals(t *testing.T) {
	persisted := &session.Metrics{
		SessionID:       testID,
		InputTokens:     9000,
		OutputTokens:    4000,
		PremiumRequests: 12,
		Iterations:      30,
	}

	tr := Restore(persisted)
	assert.Equal(t, *persisted, tr.Snapshot())

	tr.RecordUsage(Usage{InputTokens: 1})
	tr.RecordIteration()

	m := tr.Snapshot()
	assert.Equal(t, int64(9001), m.InputTokens)
	assert.Equal(t, 31, m.Iterations)
	assert.Equal(t, int64(9000), persisted.InputTokens, "restore copies, never aliases")
}

func TestResetClears(t *testing.T) {
	tr := NewTracker(testID)
	tr.RecordUsage(Usage{InputTokens: 10, OutputTokens: 10, PremiumRequest: true})
	tr.RecordIteration()

	fresh := session.NewID("fizzbuzz", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), 1)
	tr.Reset(fresh)

	m := tr.Snapshot()
	assert.Equal(t, fresh, m.SessionID)
	assert.Zero(t, m.InputTokens)
	assert.Zero(t, m.OutputTokens)
	assert.Zero(t, m.PremiumRequests)
	assert.Zero(t, m.Iterations)
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTracker(testID)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tr.RecordUsage(Usage{InputTokens: 1, OutputTokens: 2})
				_ = tr.Snapshot()
			}
		}()
	}
	wg.Wait()

	m := tr.Snapshot()
	assert.Equal(t, int64(800), m.InputTokens)
	assert.Equal(t, int64(1600), m.OutputTokens)
}
