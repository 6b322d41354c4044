package executor

import (
	"context"
	"os"
	"time"
)

// MonitorConfig bounds a watched agent invocation.
type MonitorConfig struct {
	InactivityTimeout int           // seconds without output growth before the process is killed
	HardCap           int           // absolute max runtime in seconds (default 7200)
	OutputPath        string        // file whose growth signals liveness
	TickInterval      time.Duration // interval between checks (default 2s, configurable for testing)
}

// MonitorOutput watches the file the agent streams into and cancels the
// run when the file stops growing for InactivityTimeout seconds or total
// runtime exceeds HardCap. A file that never appears still counts toward
// inactivity.
func MonitorOutput(ctx context.Context, cancel context.CancelFunc, cfg MonitorConfig) {
	if cfg.HardCap == 0 {
		cfg.HardCap = 7200
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 2 * time.Second
	}

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()

	start := time.Now()
	lastSize := int64(0)
	lastChange := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(start).Seconds() >= float64(cfg.HardCap) {
				cancel()
				return
			}

			info, err := os.Stat(cfg.OutputPath)
			if err != nil {
				continue
			}
			if size := info.Size(); size != lastSize {
				lastSize = size
				lastChange = time.Now()
			}

			if cfg.InactivityTimeout > 0 && time.Since(lastChange).Seconds() >= float64(cfg.InactivityTimeout) {
				cancel()
				return
			}
		}
	}
}
