package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckParseableClockTime(t *testing.T) {
	info := Check("You've hit your limit. Your limit resets 6pm.")
	require.NotNil(t, info)
	assert.True(t, info.Detected)
	assert.True(t, info.Parseable)
	assert.True(t, info.ResetAt.After(time.Now()))
}

func TestCheckBarePattern(t *testing.T) {
	info := Check("error: rate limit exceeded, slow down")
	require.NotNil(t, info)
	assert.True(t, info.Detected)
	assert.False(t, info.Parseable)
}

func TestCheckCleanOutput(t *testing.T) {
	assert.Nil(t, Check("all tests passing, nothing to report"))
	assert.Nil(t, Check("the meeting resets 6pm"))
}

func TestNextClockTimeRollsToTomorrow(t *testing.T) {
	now := time.Date(2026, 8, 30, 19, 0, 0, 0, time.UTC)
	at, ok := nextClockTime([]string{"", "6", "", "pm"}, now)
	require.True(t, ok)
	assert.Equal(t, 31, at.Day())
	assert.Equal(t, 18, at.Hour())
}

func TestNextClockTimeRejectsBogusClock(t *testing.T) {
	now := time.Now()
	_, ok := nextClockTime([]string{"", "25", "", ""}, now)
	assert.False(t, ok)
}

func TestWaitForResetHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForReset(ctx, &Info{Detected: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitForResetElapsedReset(t *testing.T) {
	info := &Info{Detected: true, Parseable: true, ResetAt: time.Now().Add(-time.Minute)}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, WaitForReset(ctx, info))
}
