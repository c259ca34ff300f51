package util

import (
	"fmt"
	"sync"
	"time"
)

type Clock interface {
	After(d time.Duration) <-chan time.Time
	Now() time.Time
}

type RealClock struct{}

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
func (RealClock) Now() time.Time                         { return time.Now() }

// SimClock is a manually driven clock for the devnet chain. Time only moves
// when told to, so block timestamps are fully deterministic. Never moves
// backwards: the chain relies on strictly non-decreasing timestamps.
type SimClock struct {
	mu  sync.RWMutex
	now int64 // unix seconds
}

// NewSimClock starts simulated time at the given unix timestamp.
func NewSimClock(start int64) *SimClock {
	return &SimClock{now: start}
}

func (c *SimClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Unix(c.now, 0)
}

// Unix returns the current simulated time in unix seconds.
func (c *SimClock) Unix() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// After fires immediately with the current simulated time. The devnet never
// sleeps on wall-clock time; callers that want to wait advance the clock.
func (c *SimClock) After(_ time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

// Advance moves simulated time forward by d (rounded down to whole seconds).
func (c *SimClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += int64(d / time.Second)
}

// SetTime jumps simulated time to ts. Rejects moves into the past.
func (c *SimClock) SetTime(ts int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ts < c.now {
		return fmt.Errorf("cannot rewind time: now=%d target=%d", c.now, ts)
	}
	c.now = ts
	return nil
}

// restore is used by chain snapshots, which are allowed to rewind.
func (c *SimClock) Restore(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ts
}

var _ Clock = (*SimClock)(nil)
var _ Clock = RealClock{}
