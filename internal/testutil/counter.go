package testutil

import "sync/atomic"

// EventCounter numbers trace events. The first Next returns 1, so a zero
// Seq on an event means it was never numbered.
type EventCounter struct {
	n atomic.Int64
}

// Next returns the next number.
func (c *EventCounter) Next() int64 { return c.n.Add(1) }

// Last returns the most recent number handed out, or 0.
func (c *EventCounter) Last() int64 { return c.n.Load() }
