package executor

import (
	"context"
	"fmt"

	"github.com/CodexForgeBR/module-loop/internal/ratelimit"
)

// Request describes a single agent invocation for one workflow step.
// Model is chosen per request so the fallback chain can vary between
// iterations.
type Request struct {
	Model      string
	Prompt     string
	OutputPath string
}

// Runner executes an agent CLI invocation, writing the raw stream
// output to req.OutputPath.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// RateLimitError is returned when a rate limit is detected in agent
// output.
type RateLimitError struct {
	Info          *ratelimit.Info
	UnderlyingErr error
}

func (e *RateLimitError) Error() string {
	if e.Info != nil && e.Info.Parseable {
		return fmt.Sprintf("rate limit detected (resets at %s)", e.Info.ResetHuman)
	}
	return "rate limit detected (reset time unknown)"
}

func (e *RateLimitError) Unwrap() error {
	return e.UnderlyingErr
}
