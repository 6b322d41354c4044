package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CodexForgeBR/module-loop/internal/ratelimit"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         int // seconds (default 5)
	MaxRateLimitWaits int // max consecutive rate limit waits (default 3)
	OnRetry           func(attempt int, delay int)
	OnRateLimit       func(info *ratelimit.Info)
}

// RetryWithBackoff retries fn with exponential backoff:
// BaseDelay, BaseDelay*2, BaseDelay*4, ...
// Rate limits are handled specially: the loop waits for the reported
// reset and retries without consuming an attempt.
func RetryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	if cfg.BaseDelay == 0 {
		cfg.BaseDelay = 5
	}
	if cfg.MaxRateLimitWaits == 0 {
		cfg.MaxRateLimitWaits = 3
	}

	attempt := 0
	delay := cfg.BaseDelay
	rateLimitWaits := 0

	for {
		err := fn()
		if err == nil {
			return nil
		}

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			rateLimitWaits++
			if rateLimitWaits >= cfg.MaxRateLimitWaits {
				return fmt.Errorf("max rate limit waits (%d) exceeded: %w", cfg.MaxRateLimitWaits, err)
			}
			if cfg.OnRateLimit != nil {
				cfg.OnRateLimit(rlErr.Info)
			}
			if waitErr := ratelimit.WaitForReset(ctx, rlErr.Info); waitErr != nil {
				return fmt.Errorf("rate limit wait cancelled: %w", waitErr)
			}
			continue
		}

		if attempt >= cfg.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, err)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(delay) * time.Second):
		}

		delay *= 2
		attempt++
	}
}

// RetryRunner wraps any Runner with RetryWithBackoff.
type RetryRunner struct {
	Inner    Runner
	RetryCfg RetryConfig
}

func (r *RetryRunner) Run(ctx context.Context, req Request) error {
	return RetryWithBackoff(ctx, r.RetryCfg, func() error {
		return r.Inner.Run(ctx, req)
	})
}
