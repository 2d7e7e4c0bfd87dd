package api

import (
	"github.com/aeron-go-client/aeron/pkg/audit"
)

// AuditEntry and AuditSink are the public aliases of the client's audit
// trail types, for a host composing its own Sink implementation.
type (
	AuditEntry = audit.Entry
	AuditSink  = audit.Sink
)
