// SPDX-License-Identifier: MPL-2.0

// Package testutil provides deterministic test doubles shared across
// packages, currently a controllable clock for code that waits.
package testutil

import (
	"sync"
	"time"
)

type (
	// Clock abstracts waiting so delays can be controlled in tests.
	// Production code uses RealClock; tests use FakeClock.
	Clock interface {
		// After waits for the duration to elapse and then delivers the
		// current time, like time.After.
		After(d time.Duration) <-chan time.Time
	}

	// RealClock defers to the system clock.
	RealClock struct{}

	// FakeClock only moves when Advance is called, so a test decides
	// exactly when a pending wait fires.
	FakeClock struct {
		mu      sync.Mutex
		current time.Time
		waiters []waiter
	}

	// waiter tracks a pending After call.
	waiter struct {
		target time.Time
		ch     chan time.Time
	}
)

func (RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// NewFakeClock creates a FakeClock. A zero initial time defaults to a
// fixed reference for reproducibility.
func NewFakeClock(initial time.Time) *FakeClock {
	if initial.IsZero() {
		initial = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return &FakeClock{current: initial}
}

// After returns a channel that fires once Advance moves the clock to or
// past the target time. A non-positive duration fires immediately.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.current
		return ch
	}
	c.waiters = append(c.waiters, waiter{target: c.current.Add(d), ch: ch})
	return ch
}

// Advance moves the fake time forward by d, firing any waits whose
// target has been reached.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = c.current.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !c.current.Before(w.target) {
			select {
			case w.ch <- c.current:
			default:
			}
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

// Waiting reports how many After calls are still pending, letting tests
// synchronize before advancing.
func (c *FakeClock) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
