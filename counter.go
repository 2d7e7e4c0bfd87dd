package aeron

import "sync/atomic"

// Counter is a registered entry in the driver's counters plane.
type Counter struct {
	client *Client

	RegistrationID int64
	CounterID      int32

	closed atomic.Bool
}

// Value reads the counter's current value.
func (c *Counter) Value() (int64, error) {
	return c.client.countersReader.GetCounterValue(c.CounterID)
}

// IsClosed reports whether Close has already been called.
func (c *Counter) IsClosed() bool { return c.closed.Load() }

// Close sends REMOVE_COUNTER.
func (c *Counter) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.client.conductor.RemoveCounter(c.RegistrationID)
}
