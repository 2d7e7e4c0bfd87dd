package aeron

import (
	"sync/atomic"

	"github.com/aeron-go-client/aeron/internal/logbuffer"
)

// ExclusivePublication is a registered publication with no other writer
// sharing its term buffers, allowing the client to append without the
// offer-side CAS a shared Publication needs.
type ExclusivePublication struct {
	client *Client

	RegistrationID int64
	StreamID       int32
	SessionID      int32
	Channel        string

	log *logbuffer.LogBuffer

	closed atomic.Bool
}

// IsClosed reports whether Close has already been called.
func (p *ExclusivePublication) IsClosed() bool { return p.closed.Load() }

// Close sends REMOVE_PUBLICATION and schedules the log mapping for unmap.
func (p *ExclusivePublication) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.client.conductor.RemovePublication(p.RegistrationID); err != nil {
		return err
	}
	p.client.lingerUnmap(p.RegistrationID, p.log)
	return nil
}
