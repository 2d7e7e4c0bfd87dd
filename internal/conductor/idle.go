package conductor

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IdleStrategy implements the spin -> yield -> park backoff an
// agent-thread-mode conductor applies between empty do_work passes.
// Invoker mode does not use this; the embedder drives do_work directly
// and is responsible for its own pacing.
type IdleStrategy struct {
	backoff *backoff.ExponentialBackOff
}

// NewIdleStrategy constructs an IdleStrategy that starts near-immediate
// (spin), ramps through short sleeps (yield-equivalent), and settles at a
// bounded park interval under sustained idleness.
func NewIdleStrategy() *IdleStrategy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Microsecond
	b.Multiplier = 2
	b.MaxInterval = 1 * time.Millisecond
	b.MaxElapsedTime = 0 // never gives up
	b.Reset()
	return &IdleStrategy{backoff: b}
}

// Idle is called after every do_work pass with the work count from that
// pass. A non-zero count resets the backoff to spin again; a zero count
// sleeps for the next backoff interval.
func (s *IdleStrategy) Idle(workCount int) {
	if workCount > 0 {
		s.backoff.Reset()
		return
	}
	time.Sleep(s.backoff.NextBackOff())
}
