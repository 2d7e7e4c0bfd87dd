package aeron

import "github.com/aeron-go-client/aeron/internal/conductor"

// EpochClock returns milliseconds since the Unix epoch. Inject a custom
// implementation with WithEpochClock for deterministic tests.
type EpochClock = conductor.EpochClock

// NanoClock returns a monotonic nanosecond timestamp used only for
// computing deadlines and durations. Inject a custom implementation with
// WithNanoClock for deterministic tests.
type NanoClock = conductor.NanoClock

// SystemEpochClock is the production EpochClock, backed by time.Now.
type SystemEpochClock = conductor.SystemEpochClock

// SystemNanoClock is the production NanoClock, backed by time.Now.
type SystemNanoClock = conductor.SystemNanoClock
