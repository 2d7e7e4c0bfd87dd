package aeron

import (
	"sync/atomic"

	"github.com/aeron-go-client/aeron/internal/logbuffer"
)

// Publication is a registered, ready-to-use publication on a shared log
// buffer. It is owned by the Client that created it; Close releases it and
// schedules its log file mapping to be unmapped after
// resource_linger_duration_ns.
type Publication struct {
	client *Client

	RegistrationID           int64
	StreamID                 int32
	SessionID                int32
	Channel                  string
	PositionLimitCounterID   int32
	ChannelStatusIndicatorID int32

	log *logbuffer.LogBuffer

	closed atomic.Bool
}

// IsClosed reports whether Close has already been called.
func (p *Publication) IsClosed() bool { return p.closed.Load() }

// Close sends REMOVE_PUBLICATION and schedules the log mapping for unmap.
// It does not wait for the driver's acknowledgement.
func (p *Publication) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.client.conductor.RemovePublication(p.RegistrationID); err != nil {
		return err
	}
	p.client.lingerUnmap(p.RegistrationID, p.log)
	return nil
}
