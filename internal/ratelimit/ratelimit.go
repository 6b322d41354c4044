// Package ratelimit detects rate-limit notices in agent CLI output and
// waits for the reported reset time. A rate-limited call is treated as
// a pause, not a failure: it neither consumes a retry attempt nor feeds
// the guardrail counter.
package ratelimit

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ResetBuffer pads the parsed reset time so the next call does not race
// the limiter's clock.
const ResetBuffer = 60 * time.Second

// fallbackWait is used when a limit is detected but no reset time can
// be parsed.
const fallbackWait = 15 * time.Minute

// Info describes a detected rate limit.
type Info struct {
	Detected   bool
	Parseable  bool
	ResetAt    time.Time
	ResetHuman string
}

// clockRE matches "resets 6pm", "resets 6:30pm", "reset 18:00".
var clockRE = regexp.MustCompile(`(?i)resets?\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`)

// barePatterns detect a limit without a parseable time.
var barePatterns = []string{
	"you've hit your limit",
	"rate limit exceeded",
	"rate limited",
	"too many requests",
}

// Check scans output for a rate-limit notice. Returns nil when none is
// present.
func Check(output string) *Info {
	lower := strings.ToLower(output)

	if m := clockRE.FindStringSubmatch(output); m != nil && mentionsLimit(lower) {
		if at, ok := nextClockTime(m, time.Now()); ok {
			return &Info{
				Detected:   true,
				Parseable:  true,
				ResetAt:    at.Add(ResetBuffer),
				ResetHuman: at.Format("15:04"),
			}
		}
	}

	if mentionsLimit(lower) {
		return &Info{Detected: true}
	}
	return nil
}

func mentionsLimit(lower string) bool {
	for _, p := range barePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return strings.Contains(lower, "usage limit")
}

// nextClockTime resolves a wall-clock match to the next occurrence of
// that time, today or tomorrow.
func nextClockTime(m []string, now time.Time) (time.Time, bool) {
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	minute := 0
	if m[2] != "" {
		if minute, err = strconv.Atoi(m[2]); err != nil {
			return time.Time{}, false
		}
	}
	switch strings.ToLower(m[3]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, true
}

// WaitForReset blocks until the reset time passes or ctx is cancelled.
// Unparseable limits wait a fixed fallback period.
func WaitForReset(ctx context.Context, info *Info) error {
	wait := fallbackWait
	if info != nil && info.Parseable {
		wait = time.Until(info.ResetAt)
		if wait < 0 {
			wait = 0
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
