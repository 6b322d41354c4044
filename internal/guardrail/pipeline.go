// Package guardrail provides the backpressure mechanism that halts
// automatic iteration after too many consecutive step failures.
package guardrail

import "sync"

// DefaultFailureThreshold is the interactive-safe default. Automated
// runs raise it through configuration to avoid spurious stalls.
const DefaultFailureThreshold = 3

// Decision is the per-iteration allow/block verdict. It is derived
// state, never persisted.
type Decision struct {
	Allow               bool
	ConsecutiveFailures int
}

// Pipeline maintains a consecutive-failure counter consulted once per
// orchestrator iteration. The counter increments on each failed step and
// resets on any success. When it reaches the threshold the pipeline
// blocks further automatic iteration until Reset is called.
//
// Safe for concurrent use: the orchestration loop records results while
// a foreground poller reads Failures.
type Pipeline struct {
	mu        sync.Mutex
	threshold int
	failures  int
	signaled  bool
}

// New creates a Pipeline with the given failure threshold. Values below
// one fall back to DefaultFailureThreshold.
func New(threshold int) *Pipeline {
	if threshold < 1 {
		threshold = DefaultFailureThreshold
	}
	return &Pipeline{threshold: threshold}
}

// Threshold returns the configured failure threshold.
func (p *Pipeline) Threshold() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.threshold
}

// RecordFailure increments the consecutive-failure counter.
func (p *Pipeline) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
}

// RecordSuccess resets the counter; any success breaks the streak.
func (p *Pipeline) RecordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
	p.signaled = false
}

// Failures returns the current consecutive-failure count.
func (p *Pipeline) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}

// Evaluate returns the decision for the next iteration. Blocking is
// idempotent within a streak, but FirstBlock is true only on the first
// blocking evaluation of an unbroken streak so callers signal the
// intervention exactly once.
func (p *Pipeline) Evaluate() (Decision, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failures < p.threshold {
		return Decision{Allow: true, ConsecutiveFailures: p.failures}, false
	}

	first := !p.signaled
	p.signaled = true
	return Decision{Allow: false, ConsecutiveFailures: p.failures}, first
}

// Reset clears the counter and the signal latch. This is the caller's
// "retry" recovery choice after a trip.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
	p.signaled = false
}
