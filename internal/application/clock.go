package application

import (
	"sync"
	"time"
)

// Clock interface supaya gampang ditest
type Clock interface {
	Now() time.Time
}

// SystemClock implementasi default, pakai time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MonotonicClock never goes backwards, even if the wall clock does.
// Readings are UTC and truncated to microseconds so every store keeps them exactly.
type MonotonicClock struct {
	base Clock
	mu   sync.Mutex
	last time.Time
}

func NewMonotonicClock(base Clock) *MonotonicClock {
	if base == nil {
		base = SystemClock{}
	}
	return &MonotonicClock{base: base}
}

func (c *MonotonicClock) Now() time.Time {
	t := c.base.Now().UTC().Truncate(time.Microsecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}
