package aeron

import "github.com/aeron-go-client/aeron/internal/logbuffer"

// Image is one publisher's stream of data as seen by a subscription. A
// subscription may accumulate many images over its lifetime as publishers
// come and go; each owns its own log file mapping.
type Image struct {
	ImageCorrelationID         int64
	SessionID                  int32
	StreamID                   int32
	SubscriptionRegistrationID int64
	SourceIdentity             string

	log *logbuffer.LogBuffer
}
