package process

import "sync/atomic"

// Clock stamps declarations with strictly increasing sequence numbers so
// declaration order survives map storage.
type Clock interface {
	Next() int64
	Current() int64
}

// LogicalClock is the default Clock.
type LogicalClock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *LogicalClock {
	return &LogicalClock{}
}

// NewClockAt creates a clock resuming after start.
func NewClockAt(start int64) *LogicalClock {
	c := &LogicalClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
