package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorOutputInactivityKillsRun(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.json")
	require.NoError(t, os.WriteFile(outputPath, []byte("initial"), 0644))

	cfg := MonitorConfig{
		InactivityTimeout: 1,
		HardCap:           60,
		OutputPath:        outputPath,
		TickInterval:      50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	start := time.Now()
	go func() {
		MonitorOutput(ctx, cancel, cfg)
		close(done)
	}()

	select {
	case <-done:
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 1*time.Second)
		assert.Less(t, elapsed, 3*time.Second)
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not trip on inactivity")
	}
	assert.Error(t, ctx.Err())
}

func TestMonitorOutputToleratesActiveWriter(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.json")
	require.NoError(t, os.WriteFile(outputPath, []byte("initial"), 0644))

	cfg := MonitorConfig{
		InactivityTimeout: 1,
		HardCap:           60,
		OutputPath:        outputPath,
		TickInterval:      50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go MonitorOutput(ctx, cancel, cfg)

	// Keep appending for longer than the inactivity window.
	for i := 0; i < 6; i++ {
		time.Sleep(300 * time.Millisecond)
		f, err := os.OpenFile(outputPath, os.O_APPEND|os.O_WRONLY, 0644)
		require.NoError(t, err)
		_, err = f.WriteString("more output\n")
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}

	assert.NoError(t, ctx.Err(), "monitor must not kill an active writer")
}

func TestMonitorOutputHardCap(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "output.json")

	cfg := MonitorConfig{
		InactivityTimeout: 0, // watchdog off, only the cap applies
		HardCap:           1,
		OutputPath:        outputPath,
		TickInterval:      50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		MonitorOutput(ctx, cancel, cfg)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not enforce the hard cap")
	}
	assert.Error(t, ctx.Err())
}

func TestMonitorOutputReturnsOnContextDone(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "missing.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		MonitorOutput(ctx, cancel, MonitorConfig{
			OutputPath:   outputPath,
			TickInterval: 50 * time.Millisecond,
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not observe cancellation")
	}
}
