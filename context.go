package aeron

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/aeron-go-client/aeron/adapter"
	"github.com/aeron-go-client/aeron/pkg/audit"
)

const (
	defaultDriverTimeoutMs          = 10_000
	defaultClientLivenessTimeoutNs  = int64(5 * time.Second)
	defaultKeepaliveIntervalMs      = 500
	defaultResourceLingerDurationNs = int64(3 * time.Second)
)

// Context collects the process-wide configuration needed to connect to a
// running driver, built with functional options and defaulted exactly to
// the values spec.md §6 names.
type Context struct {
	aeronDir                 string
	driverTimeoutMs          int64
	clientLivenessTimeoutNs  int64
	keepaliveIntervalMs      int64
	useConductorAgentInvoker bool
	epochClock               EpochClock
	nanoClock                NanoClock
	resourceLingerDurationNs int64
	clientID                 int64
	auditSink                audit.Sink
	telemetry                *adapter.Telemetry
}

// Option configures a Context.
type Option func(*Context)

// NewContext builds a Context from opts, applied over the spec.md §6
// defaults.
func NewContext(opts ...Option) *Context {
	c := &Context{
		aeronDir:                 defaultAeronDir(),
		driverTimeoutMs:          defaultDriverTimeoutMs,
		clientLivenessTimeoutNs:  defaultClientLivenessTimeoutNs,
		keepaliveIntervalMs:      defaultKeepaliveIntervalMs,
		resourceLingerDurationNs: defaultResourceLingerDurationNs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultAeronDir() string {
	name := "unknown"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	return filepath.Join(os.TempDir(), "aeron-"+name)
}

// WithAeronDir overrides the CnC directory.
func WithAeronDir(dir string) Option {
	return func(c *Context) { c.aeronDir = dir }
}

// WithDriverTimeoutMs overrides the driver heartbeat timeout.
func WithDriverTimeoutMs(ms int64) Option {
	return func(c *Context) { c.driverTimeoutMs = ms }
}

// WithClientLivenessTimeoutNs overrides the client -> driver heartbeat
// expectation published in the CnC metadata.
func WithClientLivenessTimeoutNs(ns int64) Option {
	return func(c *Context) { c.clientLivenessTimeoutNs = ns }
}

// WithKeepaliveIntervalMs overrides the client keepalive cadence.
func WithKeepaliveIntervalMs(ms int64) Option {
	return func(c *Context) { c.keepaliveIntervalMs = ms }
}

// WithUseConductorAgentInvoker selects invoker mode: the caller drives
// DoWork explicitly instead of a background agent goroutine.
func WithUseConductorAgentInvoker(use bool) Option {
	return func(c *Context) { c.useConductorAgentInvoker = use }
}

// WithEpochClock injects a custom wall-clock source, used by tests.
func WithEpochClock(clock EpochClock) Option {
	return func(c *Context) { c.epochClock = clock }
}

// WithNanoClock injects a custom monotonic-clock source, used by tests.
func WithNanoClock(clock NanoClock) Option {
	return func(c *Context) { c.nanoClock = clock }
}

// WithResourceLingerDurationNs overrides the delay before a closed
// resource's backing log file mapping is unmapped.
func WithResourceLingerDurationNs(ns int64) Option {
	return func(c *Context) { c.resourceLingerDurationNs = ns }
}

// WithClientID overrides the client id stamped on every command frame.
// Left unset, Connect uses the current wall-clock time in nanoseconds.
func WithClientID(id int64) Option {
	return func(c *Context) { c.clientID = id }
}

// WithAuditSink registers a Sink to receive every driver error and every
// sticky DRIVER_DEAD/BROADCAST_LOSS transition. Left unset, the Client
// records nothing.
func WithAuditSink(sink audit.Sink) Option {
	return func(c *Context) { c.auditSink = sink }
}

// WithTelemetry registers a Telemetry to trace every blocking
// add-publication/add-subscription/add-counter round trip and count driver
// errors; the AsyncAdd*/Poll calls are not traced. Left unset, the Client
// does not touch OTel at all.
func WithTelemetry(t *adapter.Telemetry) Option {
	return func(c *Context) { c.telemetry = t }
}

// Validate checks the context for values that would make Connect
// nonsensical, returning an AeronError with code ErrInvalidArgument.
func (c *Context) Validate() error {
	if c.aeronDir == "" {
		return &AeronError{Code: ErrInvalidArgument, Message: "aeron_dir must not be empty"}
	}
	if c.driverTimeoutMs <= 0 {
		return &AeronError{Code: ErrInvalidArgument, Message: fmt.Sprintf("driver_timeout_ms must be positive, got %d", c.driverTimeoutMs)}
	}
	if c.keepaliveIntervalMs <= 0 {
		return &AeronError{Code: ErrInvalidArgument, Message: fmt.Sprintf("keepalive_interval_ms must be positive, got %d", c.keepaliveIntervalMs)}
	}
	if c.clientLivenessTimeoutNs <= 0 {
		return &AeronError{Code: ErrInvalidArgument, Message: "client_liveness_timeout_ns must be positive"}
	}
	return nil
}

func (c *Context) cncFile() string {
	return filepath.Join(c.aeronDir, "cnc.dat")
}
