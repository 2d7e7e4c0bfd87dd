package conductor

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/aeron-go-client/aeron/internal/aeronerrors"
	"github.com/aeron-go-client/aeron/internal/broadcast"
	"github.com/aeron-go-client/aeron/internal/logging"
	"github.com/aeron-go-client/aeron/internal/ringbuffer"
)

// callbackPoolSize bounds the goroutine pool used to invoke
// on_available_image/on_unavailable_image off the conductor thread, so a
// slow user callback cannot stall do_work.
const callbackPoolSize = 8

// LogFileMapper maps the named log file and returns an opaque resource
// handle for it. It is supplied by the caller because mapping itself is
// out of this package's scope (see internal/mmap); the conductor only
// needs to invoke it on an ON_*_READY event and store whatever comes
// back.
type LogFileMapper func(correlationID int64, kind Kind, logFileName string) (interface{}, error)

// EventBudget bounds how many broadcast events a single do_work pass will
// drain, keeping each pass non-blocking and bounded.
const EventBudget = 10

var log = logging.New("conductor", nil)

// Conductor is the single-threaded client-side agent. All state mutation
// happens on the thread calling DoWork (or the agent-thread-mode
// goroutine that calls it in a loop); application threads calling the
// AsyncAdd* methods are serialized through mu, which is held only across
// the enqueue-and-registry-insert critical section.
type Conductor struct {
	mu sync.Mutex

	ring     *ringbuffer.ManyToOneRingBuffer
	receiver *broadcast.Receiver
	encoder  *Encoder
	registry *Registry

	epochClock EpochClock
	nanoClock  NanoClock

	driverTimeoutMs         int64
	keepaliveIntervalMs     int64
	clientLivenessTimeoutNs int64

	lastKeepaliveMs int64

	mapLogFile LogFileMapper

	driverDead    atomic.Bool
	broadcastLoss atomic.Bool

	doWorkPasses                atomic.Int64
	eventsProcessed             atomic.Int64
	insufficientSpaceRejections atomic.Int64

	onAvailableImage   func(AvailableImage)
	onUnavailableImage func(UnavailableImage)
	onAuditEvent       func(AuditEvent)

	callbackPool *ants.Pool
}

// AuditEvent is handed to Config.OnAuditEvent for every driver-reported
// error and every sticky liveness transition, so a caller can feed an
// audit trail without the conductor depending on one directly.
type AuditEvent struct {
	Kind          string
	CorrelationID int64
	Message       string
}

// Config bundles the dependencies and tunables a Conductor needs.
type Config struct {
	Ring                    *ringbuffer.ManyToOneRingBuffer
	Receiver                *broadcast.Receiver
	ClientID                int64
	EpochClock              EpochClock
	NanoClock               NanoClock
	DriverTimeoutMs         int64
	KeepaliveIntervalMs     int64
	ClientLivenessTimeoutNs int64
	MapLogFile              LogFileMapper
	OnAvailableImage        func(AvailableImage)
	OnUnavailableImage      func(UnavailableImage)
	OnAuditEvent            func(AuditEvent)
}

// New constructs a Conductor from cfg, defaulting EpochClock/NanoClock to
// the system clocks when unset.
func New(cfg Config) *Conductor {
	epochClock := cfg.EpochClock
	if epochClock == nil {
		epochClock = SystemEpochClock{}
	}
	nanoClock := cfg.NanoClock
	if nanoClock == nil {
		nanoClock = SystemNanoClock{}
	}

	pool, err := ants.NewPool(callbackPoolSize, ants.WithNonblocking(false))
	if err != nil {
		// A bounded goroutine pool with a fixed, small size only fails to
		// construct on invalid arguments; callbackPoolSize is a constant,
		// so treat this as unreachable rather than threading an error
		// return through New.
		panic(err)
	}

	c := &Conductor{
		ring:                    cfg.Ring,
		receiver:                cfg.Receiver,
		encoder:                 NewEncoder(cfg.Ring, cfg.ClientID),
		registry:                NewRegistry(),
		epochClock:              epochClock,
		nanoClock:               nanoClock,
		driverTimeoutMs:         cfg.DriverTimeoutMs,
		keepaliveIntervalMs:     cfg.KeepaliveIntervalMs,
		clientLivenessTimeoutNs: cfg.ClientLivenessTimeoutNs,
		mapLogFile:              cfg.MapLogFile,
		onAvailableImage:        cfg.OnAvailableImage,
		onUnavailableImage:      cfg.OnUnavailableImage,
		onAuditEvent:            cfg.OnAuditEvent,
		callbackPool:            pool,
	}
	c.lastKeepaliveMs = epochClock.TimeMs()
	return c
}

func (c *Conductor) stickyError() *aeronerrors.ClientError {
	if c.driverDead.Load() {
		return aeronerrors.New(aeronerrors.DriverDead, "driver heartbeat lapsed")
	}
	if c.broadcastLoss.Load() {
		return aeronerrors.New(aeronerrors.BroadcastLoss, "client fell behind the broadcast producer")
	}
	return nil
}

// AsyncAddPublication sends ADD_PUBLICATION and registers a Pending
// handle, returning a correlation id the caller polls with Poll.
func (c *Conductor) AsyncAddPublication(uri string, streamID int32) (int64, error) {
	return c.asyncAdd(KindPublication, func(correlationID int64) error {
		return c.encoder.AddPublication(correlationID, streamID, uri)
	})
}

// AsyncAddExclusivePublication sends ADD_EXCLUSIVE_PUBLICATION and
// registers a Pending handle.
func (c *Conductor) AsyncAddExclusivePublication(uri string, streamID int32) (int64, error) {
	return c.asyncAdd(KindExclusivePublication, func(correlationID int64) error {
		return c.encoder.AddExclusivePublication(correlationID, streamID, uri)
	})
}

// AsyncAddSubscription sends ADD_SUBSCRIPTION and registers a Pending
// handle.
func (c *Conductor) AsyncAddSubscription(uri string, streamID int32) (int64, error) {
	return c.asyncAdd(KindSubscription, func(correlationID int64) error {
		return c.encoder.AddSubscription(correlationID, streamID, uri)
	})
}

// AsyncAddCounter sends ADD_COUNTER and registers a Pending handle.
func (c *Conductor) AsyncAddCounter(typeID int32, key []byte, label string) (int64, error) {
	return c.asyncAdd(KindCounter, func(correlationID int64) error {
		return c.encoder.AddCounter(correlationID, typeID, key, label)
	})
}

func (c *Conductor) asyncAdd(kind Kind, encode func(correlationID int64) error) (int64, error) {
	if err := c.stickyError(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	correlationID := c.ring.NextCorrelationID()
	if err := encode(correlationID); err != nil {
		if errors.Is(err, ringbuffer.ErrInsufficientSpace) {
			c.insufficientSpaceRejections.Add(1)
			return 0, aeronerrors.New(aeronerrors.InsufficientSpace, "to-driver ring is full")
		}
		return 0, aeronerrors.Wrap(aeronerrors.IO, "failed to encode command", err)
	}

	c.registry.Insert(&Handle{
		CorrelationID: correlationID,
		Kind:          kind,
		State:         Pending,
		DeadlineNs:    c.nanoClock.TimeNs() + c.driverTimeoutMs*int64(1e6),
	})

	return correlationID, nil
}

// PollResult is returned by Poll.
type PollResult struct {
	// Ready is true once the handle reached a terminal state.
	Ready bool
	// Resource is the materialized resource on a successful Ready
	// transition.
	Resource interface{}
	// Err is set when the handle resolved to Errored or TimedOut, or the
	// handle id is unknown (already closed or never registered).
	Err error
	// Metadata carries the decoded ON_*_READY event alongside Resource.
	Metadata interface{}
}

// Poll checks correlationID's handle. A not-yet-resolved Pending handle
// returns {Ready: false}.
func (c *Conductor) Poll(correlationID int64) PollResult {
	h := c.registry.Get(correlationID)
	if h == nil {
		return PollResult{Ready: true, Err: aeronerrors.New(aeronerrors.Closed, "unknown or closed handle")}
	}

	switch h.State {
	case Pending:
		return PollResult{Ready: false}
	case Ready:
		c.registry.Remove(correlationID)
		return PollResult{Ready: true, Resource: h.Resource, Metadata: h.Metadata}
	case Errored:
		c.registry.Remove(correlationID)
		return PollResult{Ready: true, Err: aeronerrors.FromDriver(h.ErrorCode, h.ErrorMessage)}
	case TimedOut:
		c.registry.Remove(correlationID)
		return PollResult{Ready: true, Err: aeronerrors.New(aeronerrors.DriverTimeout, "no response within driver_timeout_ms")}
	case Closed:
		c.registry.Remove(correlationID)
		return PollResult{Ready: true, Err: aeronerrors.New(aeronerrors.Closed, "handle closed before it resolved")}
	default:
		return PollResult{Ready: true, Err: aeronerrors.New(aeronerrors.IO, "handle in unknown state")}
	}
}

// CloseHandle abandons a still-pending handle; its eventual response, if
// any, will find no Pending handle and be ignored by the dispatcher.
func (c *Conductor) CloseHandle(correlationID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h := c.registry.Get(correlationID); h != nil {
		h.State = Closed
	}
}

// RemovePublication sends REMOVE_PUBLICATION for a previously ready
// publication's registration id. It does not wait for a response.
func (c *Conductor) RemovePublication(registrationID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	correlationID := c.ring.NextCorrelationID()
	return c.encoder.RemovePublication(correlationID, registrationID)
}

// RemoveSubscription sends REMOVE_SUBSCRIPTION for a previously ready
// subscription's registration id.
func (c *Conductor) RemoveSubscription(registrationID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	correlationID := c.ring.NextCorrelationID()
	return c.encoder.RemoveSubscription(correlationID, registrationID)
}

// RemoveCounter sends REMOVE_COUNTER for a previously ready counter's
// registration id.
func (c *Conductor) RemoveCounter(registrationID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	correlationID := c.ring.NextCorrelationID()
	return c.encoder.RemoveCounter(correlationID, registrationID)
}

// DoWork performs one non-blocking pass: drain the broadcast buffer,
// sweep the registry for expired deadlines, emit a keepalive if due, and
// check driver liveness. It returns the number of units of work
// performed, matching the conventional Aeron agent contract.
func (c *Conductor) DoWork() int {
	c.doWorkPasses.Add(1)
	workCount := 0

	workCount += c.drainBroadcast()
	workCount += c.registry.SweepExpired(c.nanoClock.TimeNs())
	workCount += c.maybeSendKeepalive()
	c.checkDriverLiveness()

	return workCount
}

func (c *Conductor) drainBroadcast() int {
	n := c.receiver.Receive(c.dispatch, EventBudget)
	if c.receiver.Lapped() && c.broadcastLoss.CompareAndSwap(false, true) {
		log.Errorf("broadcast buffer lapped: client fell behind the driver")
		c.emitAuditEvent(AuditEvent{Kind: "broadcast_loss", Message: "client fell behind the broadcast producer"})
	}
	return n
}

func (c *Conductor) emitAuditEvent(ev AuditEvent) {
	if c.onAuditEvent != nil {
		c.onAuditEvent(ev)
	}
}

func (c *Conductor) dispatch(typeID int32, msg []byte) {
	c.eventsProcessed.Add(1)
	switch EventTypeID(typeID) {
	case OnPublicationReady:
		c.handleReady(DecodePublicationReady(msg).CorrelationID, KindPublication, msg)
	case OnExclusivePublicationReady:
		c.handleReady(DecodePublicationReady(msg).CorrelationID, KindExclusivePublication, msg)
	case OnSubscriptionReady:
		c.handleReady(DecodeSubscriptionReady(msg).CorrelationID, KindSubscription, msg)
	case OnCounterReady:
		c.handleReady(DecodeCounterReady(msg).CorrelationID, KindCounter, msg)
	case OnError:
		c.handleError(DecodeError(msg))
	case OnAvailableImage:
		if c.onAvailableImage != nil {
			ev := DecodeAvailableImage(msg)
			if err := c.callbackPool.Submit(func() { c.onAvailableImage(ev) }); err != nil {
				log.Warnf("on_available_image callback dropped: %v", err)
			}
		}
	case OnUnavailableImage:
		if c.onUnavailableImage != nil {
			ev := DecodeUnavailableImage(msg)
			if err := c.callbackPool.Submit(func() { c.onUnavailableImage(ev) }); err != nil {
				log.Warnf("on_unavailable_image callback dropped: %v", err)
			}
		}
	default:
		log.Warnf("unknown event type id %d", typeID)
	}
}

func (c *Conductor) handleReady(correlationID int64, kind Kind, msg []byte) {
	h := c.registry.Get(correlationID)
	if h == nil || h.State != Pending {
		return
	}

	logFileName := ""
	switch kind {
	case KindPublication, KindExclusivePublication:
		ev := DecodePublicationReady(msg)
		h.Metadata = ev
		logFileName = ev.LogFileName
	case KindSubscription:
		h.Metadata = DecodeSubscriptionReady(msg)
	case KindCounter:
		h.Metadata = DecodeCounterReady(msg)
	}

	if logFileName != "" && c.mapLogFile != nil {
		resource, err := c.mapLogFile(correlationID, kind, logFileName)
		if err != nil {
			h.State = Errored
			h.ErrorCode = int32(aeronerrors.IO)
			h.ErrorMessage = err.Error()
			return
		}
		h.Resource = resource
	}

	h.State = Ready
}

func (c *Conductor) handleError(ev ErrorResponse) {
	h := c.registry.Get(ev.OffendingCorrelationID)
	if h == nil || h.State != Pending {
		return
	}
	h.State = Errored
	h.ErrorCode = ev.ErrorCode
	h.ErrorMessage = ev.ErrorMessage
	c.emitAuditEvent(AuditEvent{Kind: "driver_error", CorrelationID: ev.OffendingCorrelationID, Message: ev.ErrorMessage})
}

// maybeSendKeepalive sends CLIENT_KEEPALIVE on the to-driver ring at
// keepaliveIntervalMs cadence. This proves client liveness to the driver;
// it has nothing to do with the ring's own consumer-heartbeat trailer slot,
// which the driver (the ring's consumer) owns and checkDriverLiveness reads.
func (c *Conductor) maybeSendKeepalive() int {
	now := c.epochClock.TimeMs()
	if now-c.lastKeepaliveMs < c.keepaliveIntervalMs {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.encoder.ClientKeepalive(); err != nil {
		log.Warnf("keepalive dropped: %v", err)
		return 0
	}
	c.lastKeepaliveMs = now
	return 1
}

// checkDriverLiveness declares the driver dead once its consumer-heartbeat
// trailer stamp on the to-driver ring has not advanced within
// driverTimeoutMs. That stamp is written by the driver itself as it drains
// the ring, not by this client.
func (c *Conductor) checkDriverLiveness() {
	if c.driverDead.Load() {
		return
	}
	now := c.epochClock.TimeMs()
	lastBeat := c.ring.ConsumerHeartbeatTimeValue()
	if now-lastBeat > c.driverTimeoutMs && c.driverDead.CompareAndSwap(false, true) {
		log.Errorf("driver heartbeat lapsed after %dms", c.driverTimeoutMs)
		c.emitAuditEvent(AuditEvent{Kind: "driver_dead", Message: "driver heartbeat lapsed"})
	}
}

// IsDriverDead reports the sticky DRIVER_DEAD condition.
func (c *Conductor) IsDriverDead() bool { return c.driverDead.Load() }

// IsBroadcastLoss reports the sticky BROADCAST_LOSS condition.
func (c *Conductor) IsBroadcastLoss() bool { return c.broadcastLoss.Load() }

// RegistrySize returns the number of tracked handles, used for the
// occupancy metric.
func (c *Conductor) RegistrySize() int { return c.registry.Count() }

// RingOccupancy returns the number of claimed-but-undrained bytes in the
// to-driver ring.
func (c *Conductor) RingOccupancy() int32 { return c.ring.Occupancy() }

// BroadcastLag returns how many bytes the driver's broadcast tail
// currently leads this client's read cursor by.
func (c *Conductor) BroadcastLag() int64 { return c.receiver.Lag() }

// DoWorkPasses returns the cumulative number of DoWork invocations.
func (c *Conductor) DoWorkPasses() int64 { return c.doWorkPasses.Load() }

// EventsProcessed returns the cumulative number of broadcast events
// dispatched.
func (c *Conductor) EventsProcessed() int64 { return c.eventsProcessed.Load() }

// InsufficientSpaceRejections returns the cumulative number of commands
// rejected because the to-driver ring had no room.
func (c *Conductor) InsufficientSpaceRejections() int64 { return c.insufficientSpaceRejections.Load() }

// OnClose tears down all resources and marks every outstanding handle
// Closed.
func (c *Conductor) OnClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.handles.IterCb(func(_ int64, h *Handle) {
		h.State = Closed
	})
	c.callbackPool.Release()
}
