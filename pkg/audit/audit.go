// Package audit re-exports the client's internal audit trail types for
// callers that want to plug in their own Sink without reaching into
// internal/audit directly.
package audit

import (
	internalaudit "github.com/aeron-go-client/aeron/internal/audit"
)

type (
	Entry = internalaudit.Entry
	Kind  = internalaudit.Kind
	Trail = internalaudit.Trail
)

const (
	KindDriverError   = internalaudit.KindDriverError
	KindDriverDead    = internalaudit.KindDriverDead
	KindBroadcastLoss = internalaudit.KindBroadcastLoss
)

// Sink receives audit entries as they are recorded. A Trail satisfies
// this via its Record method; so does any custom backend a caller
// wires in through Context.
type Sink interface {
	Record(Entry)
}

// NewTrail constructs a bounded in-memory Sink.
func NewTrail(capacity int) *Trail {
	return internalaudit.NewTrail(capacity)
}
