// Package backoff provides delay strategies for retry loops and a
// context-aware sleep.
package backoff

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a given attempt. Attempt starts at 1.
// Implementations must be safe for concurrent use.
type Strategy interface {
	NextInterval(attempt int) time.Duration
}

// Func adapts a plain function to Strategy.
type Func func(attempt int) time.Duration

func (f Func) NextInterval(attempt int) time.Duration { return f(attempt) }

// Exponential grows the delay geometrically with optional jitter.
// Formula: min(Initial * Multiplier^(attempt-1) * (1 ± Jitter), Max)
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func (e Exponential) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.Initial
	if initial == 0 {
		initial = 100 * time.Millisecond
	}
	maxDelay := e.Max
	if maxDelay == 0 {
		maxDelay = 10 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if e.Jitter > 0 {
		interval *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	if interval > float64(maxDelay) {
		interval = float64(maxDelay)
	}
	return time.Duration(interval)
}

// Linear returns Interval * attempt, capped at Max when Max is set.
type Linear struct {
	Interval time.Duration
	Max      time.Duration
}

func (l Linear) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	interval := l.Interval
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	delay := interval * time.Duration(attempt)
	if l.Max > 0 && delay > l.Max {
		delay = l.Max
	}
	return delay
}

// Fixed returns the same delay for every attempt.
type Fixed struct {
	Interval time.Duration
}

func (f Fixed) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// FirstThen waits First before attempt 1, then defers to Then for later
// attempts, shifted so that attempt 2 asks Then for attempt 1.
//
//	FirstThen{First: 50ms, Then: Linear{Interval: 100ms}} -> 50ms, 100ms, 200ms, ...
type FirstThen struct {
	First time.Duration
	Then  Strategy
}

func (f FirstThen) NextInterval(attempt int) time.Duration {
	switch {
	case attempt <= 0:
		return 0
	case attempt == 1:
		return f.First
	case f.Then == nil:
		return f.First
	default:
		return f.Then.NextInterval(attempt - 1)
	}
}

// Schedule lists the first n delays of s.
func Schedule(s Strategy, n int) []time.Duration {
	out := make([]time.Duration, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		out = append(out, s.NextInterval(i))
	}
	return out
}

// Sleep waits for d or until ctx is done, whichever happens first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
