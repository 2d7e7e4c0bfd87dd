package adapter

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry wires a trace.Tracer and metric.Meter onto the client's
// correlation-id lifecycle, so add/remove operations and driver errors
// show up in whatever OTel backend the embedding host already exports
// to.
type Telemetry struct {
	tracer       trace.Tracer
	driverErrors metric.Int64Counter
}

// NewTelemetry builds a Telemetry from tracer and meter. Either may be
// nil, in which case the corresponding instrumentation is a no-op.
func NewTelemetry(tracer trace.Tracer, meter metric.Meter) (*Telemetry, error) {
	var counter metric.Int64Counter
	if meter != nil {
		c, err := meter.Int64Counter("aeron_client_driver_errors_total")
		if err != nil {
			return nil, err
		}
		counter = c
	}
	return &Telemetry{tracer: tracer, driverErrors: counter}, nil
}

// StartAsyncAdd opens a span covering one async add-publication/
// add-subscription/add-counter round trip, named for kind.
func (t *Telemetry) StartAsyncAdd(ctx context.Context, kind string) (context.Context, trace.Span) {
	if t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, "aeron.add_"+kind)
}

// RecordDriverError increments the driver-error counter.
func (t *Telemetry) RecordDriverError(ctx context.Context) {
	if t.driverErrors != nil {
		t.driverErrors.Add(ctx, 1)
	}
}
