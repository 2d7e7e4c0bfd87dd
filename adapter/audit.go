package adapter

import (
	"github.com/aeron-go-client/aeron/internal/logging"
	"github.com/aeron-go-client/aeron/pkg/audit"
)

// LogAuditSink writes audit entries through a logging.Logger instead of
// keeping them in memory, for hosts that already ship their own log
// aggregation and have no use for Trail.Recent.
type LogAuditSink struct {
	logger *logging.Logger
}

// NewLogAuditSink builds a LogAuditSink writing through logger. A nil
// logger defaults to logging.Default.
func NewLogAuditSink(logger *logging.Logger) *LogAuditSink {
	if logger == nil {
		logger = logging.Default
	}
	return &LogAuditSink{logger: logger}
}

// Record implements audit.Sink.
func (s *LogAuditSink) Record(e audit.Entry) {
	s.logger.Errorf("audit %s correlation_id=%d %s", e.Kind, e.CorrelationID, e.Message)
}
