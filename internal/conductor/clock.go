package conductor

import "time"

// EpochClock returns milliseconds since the Unix epoch.
type EpochClock interface {
	TimeMs() int64
}

// NanoClock returns a monotonic nanosecond timestamp; it is not related
// to wall-clock time and is only ever used for computing deadlines and
// durations.
type NanoClock interface {
	TimeNs() int64
}

// SystemEpochClock is the production EpochClock.
type SystemEpochClock struct{}

// TimeMs returns the current wall-clock time in milliseconds.
func (SystemEpochClock) TimeMs() int64 {
	return time.Now().UnixMilli()
}

// SystemNanoClock is the production NanoClock.
type SystemNanoClock struct{}

// systemNanoClockBase anchors SystemNanoClock to Go's monotonic clock
// reading taken at package initialisation.
var systemNanoClockBase = time.Now()

// TimeNs returns the current monotonic time in nanoseconds.
func (SystemNanoClock) TimeNs() int64 {
	return int64(time.Since(systemNanoClockBase))
}

// ManualClock is an injectable EpochClock and NanoClock for deterministic
// tests: both ms and ns advance only when Advance is called.
type ManualClock struct {
	ms int64
	ns int64
}

// NewManualClock constructs a ManualClock starting at the given wall-clock
// ms and monotonic ns values.
func NewManualClock(startMs, startNs int64) *ManualClock {
	return &ManualClock{ms: startMs, ns: startNs}
}

// TimeMs returns the current simulated wall-clock time.
func (c *ManualClock) TimeMs() int64 { return c.ms }

// TimeNs returns the current simulated monotonic time.
func (c *ManualClock) TimeNs() int64 { return c.ns }

// Advance moves both clocks forward by deltaMs milliseconds, keeping them
// in lockstep the way a real process's wall and monotonic clocks advance
// together.
func (c *ManualClock) Advance(deltaMs int64) {
	c.ms += deltaMs
	c.ns += deltaMs * int64(time.Millisecond)
}
