package aeron

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aeron-go-client/aeron/adapter"
	"github.com/aeron-go-client/aeron/internal/broadcast"
	"github.com/aeron-go-client/aeron/internal/cnc"
	"github.com/aeron-go-client/aeron/internal/conductor"
	"github.com/aeron-go-client/aeron/internal/counters"
	"github.com/aeron-go-client/aeron/internal/health"
	"github.com/aeron-go-client/aeron/internal/lifecycle"
	"github.com/aeron-go-client/aeron/internal/logbuffer"
	"github.com/aeron-go-client/aeron/internal/mmap"
	"github.com/aeron-go-client/aeron/internal/ringbuffer"
	"github.com/aeron-go-client/aeron/pkg/audit"
)

// cncPollInterval is how often Connect re-checks the cnc file's
// existence and version while waiting for the driver to publish it.
const cncPollInterval = 16 * time.Millisecond

// Client is a connection to a running driver: the mapped CnC file, the
// conductor driving the to-driver ring and to-clients broadcast channel,
// and the bookkeeping needed to service Publication/Subscription/Counter
// lifecycles.
type Client struct {
	ctx       *Context
	cncRegion *mmap.Region
	driverPid int64

	conductor          *conductor.Conductor
	countersReader     *counters.Reader
	lifecycleScheduler *lifecycle.Scheduler
	auditSink          audit.Sink
	telemetry          *adapter.Telemetry

	mu            sync.Mutex
	subscriptions map[int64]*Subscription

	stopAgent chan struct{}
	agentDone chan struct{}

	closed atomic.Bool
}

// Connect maps the driver's CnC file under ctx's aeron_dir, waits for the
// driver to publish a compatible version, and constructs a Client wired
// to the to-driver ring and to-clients broadcast channel it describes. A
// nil ctx uses NewContext()'s defaults.
func Connect(ctx *Context) (*Client, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	if err := ctx.Validate(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(time.Duration(ctx.driverTimeoutMs) * time.Millisecond)
	cncPath := ctx.cncFile()

	var size int64
	for {
		info, err := os.Stat(cncPath)
		if err == nil && info.Size() >= int64(cnc.MetaDataLength) {
			size = info.Size()
			break
		}
		if time.Now().After(deadline) {
			return nil, &AeronError{Code: ErrDriverTimeout, Message: "cnc file did not appear within driver_timeout_ms"}
		}
		time.Sleep(cncPollInterval)
	}

	region, err := mmap.Open(cncPath, size, false)
	if err != nil {
		return nil, &AeronError{Code: ErrIO, Message: "failed to map cnc file", Err: err}
	}

	buf := region.Buffer()
	for {
		v, err := cnc.AwaitVersion(buf)
		if err != nil {
			_ = region.Close()
			return nil, &AeronError{Code: ErrDriverError, Message: err.Error()}
		}
		if v != 0 {
			break
		}
		if time.Now().After(deadline) {
			_ = region.Close()
			return nil, &AeronError{Code: ErrDriverTimeout, Message: "cnc version not published within driver_timeout_ms"}
		}
		time.Sleep(cncPollInterval)
	}

	desc, err := cnc.Parse(buf)
	if err != nil {
		_ = region.Close()
		return nil, &AeronError{Code: ErrIO, Message: "failed to parse cnc metadata", Err: err}
	}

	ring, err := ringbuffer.Wrap(desc.ToDriverBuffer, int32(desc.ToDriverBuffer.Capacity())-ringbuffer.TrailerLength)
	if err != nil {
		_ = region.Close()
		return nil, &AeronError{Code: ErrIO, Message: "failed to wrap to-driver ring", Err: err}
	}
	receiver, err := broadcast.NewReceiver(desc.ToClientsBuffer, int32(desc.ToClientsBuffer.Capacity())-broadcast.TrailerLength)
	if err != nil {
		_ = region.Close()
		return nil, &AeronError{Code: ErrIO, Message: "failed to wrap to-clients broadcast channel", Err: err}
	}

	clientID := ctx.clientID
	if clientID == 0 {
		clientID = time.Now().UnixNano()
	}

	cl := &Client{
		ctx:                ctx,
		cncRegion:          region,
		driverPid:          desc.Metadata.Pid,
		countersReader:     counters.NewReader(desc.CounterValues, desc.CounterMetadata),
		lifecycleScheduler: lifecycle.NewScheduler(),
		auditSink:          ctx.auditSink,
		telemetry:          ctx.telemetry,
		subscriptions:      make(map[int64]*Subscription),
	}

	cl.conductor = conductor.New(conductor.Config{
		Ring:                    ring,
		Receiver:                receiver,
		ClientID:                clientID,
		EpochClock:              ctx.epochClock,
		NanoClock:               ctx.nanoClock,
		DriverTimeoutMs:         ctx.driverTimeoutMs,
		KeepaliveIntervalMs:     ctx.keepaliveIntervalMs,
		ClientLivenessTimeoutNs: ctx.clientLivenessTimeoutNs,
		MapLogFile:              cl.mapLogFile,
		OnAvailableImage:        cl.handleAvailableImage,
		OnUnavailableImage:      cl.handleUnavailableImage,
		OnAuditEvent:            cl.handleAuditEvent,
	})

	if !ctx.useConductorAgentInvoker {
		cl.stopAgent = make(chan struct{})
		cl.agentDone = make(chan struct{})
		go cl.runAgent()
	}

	return cl, nil
}

func (cl *Client) epochClock() EpochClock {
	if cl.ctx.epochClock != nil {
		return cl.ctx.epochClock
	}
	return SystemEpochClock{}
}

func (cl *Client) nanoClock() NanoClock {
	if cl.ctx.nanoClock != nil {
		return cl.ctx.nanoClock
	}
	return SystemNanoClock{}
}

// runAgent drives do_work and the resource-linger sweep on a dedicated
// goroutine, the same way Aeron's Java client runs its agent thread. It is
// only started when the Context is not in invoker mode.
func (cl *Client) runAgent() {
	defer close(cl.agentDone)
	idle := conductor.NewIdleStrategy()
	for {
		select {
		case <-cl.stopAgent:
			return
		default:
		}
		idle.Idle(cl.DoWork())
	}
}

// DoWork performs one non-blocking pass: draining the to-driver conductor
// (broadcast receipt, registry sweep, keepalive, driver-liveness check) and
// sweeping the resource-linger scheduler. It returns the number of units of
// work performed.
//
// In invoker mode (WithUseConductorAgentInvoker), no background goroutine
// runs and the embedding application is responsible for calling DoWork on
// its own thread cadence; without it, async adds never resolve and
// on_available_image/on_unavailable_image never fire. Outside invoker mode
// the background agent already calls this, and calling it again from
// another goroutine is harmless but redundant.
func (cl *Client) DoWork() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	n := cl.conductor.DoWork()
	n += cl.lifecycleScheduler.Sweep(cl.nanoClock().TimeNs())
	return n
}

// Handle refers to a not-yet-resolved Async* call. It carries just enough
// of the original request to materialize the eventual resource once Poll
// reports it ready; it has no meaning outside the Client that issued it.
type Handle struct {
	correlationID int64
	kind          conductor.Kind
	channel       string
	streamID      int32
}

// Poll checks h against the driver's response so far. A still-pending
// handle returns (nil, false, nil); a resolved one returns the
// materialized resource (a *Publication, *ExclusivePublication,
// *Subscription, or *Counter, matching the Async* call h came from) and
// consumes h, so a given Handle must only be polled until it reports ready.
func (cl *Client) Poll(h *Handle) (resource interface{}, ready bool, err error) {
	cl.mu.Lock()
	res := cl.conductor.Poll(h.correlationID)
	cl.mu.Unlock()
	if !res.Ready {
		return nil, false, nil
	}
	if res.Err != nil {
		return nil, true, res.Err
	}

	switch h.kind {
	case conductor.KindPublication:
		ev, _ := res.Metadata.(conductor.PublicationReady)
		log, _ := res.Resource.(*logbuffer.LogBuffer)
		return &Publication{
			client:                   cl,
			RegistrationID:           ev.RegistrationID,
			StreamID:                 ev.StreamID,
			SessionID:                ev.SessionID,
			Channel:                  h.channel,
			PositionLimitCounterID:   ev.PositionLimitCounterID,
			ChannelStatusIndicatorID: ev.ChannelStatusIndicatorID,
			log:                      log,
		}, true, nil
	case conductor.KindExclusivePublication:
		ev, _ := res.Metadata.(conductor.PublicationReady)
		log, _ := res.Resource.(*logbuffer.LogBuffer)
		return &ExclusivePublication{
			client:         cl,
			RegistrationID: ev.RegistrationID,
			StreamID:       ev.StreamID,
			SessionID:      ev.SessionID,
			Channel:        h.channel,
			log:            log,
		}, true, nil
	case conductor.KindSubscription:
		ev, _ := res.Metadata.(conductor.SubscriptionReady)
		sub := &Subscription{
			client:                   cl,
			RegistrationID:           h.correlationID,
			StreamID:                 h.streamID,
			Channel:                  h.channel,
			ChannelStatusIndicatorID: ev.ChannelStatusIndicatorID,
			images:                   make(map[int64]*Image),
		}
		cl.mu.Lock()
		cl.subscriptions[h.correlationID] = sub
		cl.mu.Unlock()
		return sub, true, nil
	case conductor.KindCounter:
		ev, _ := res.Metadata.(conductor.CounterReady)
		return &Counter{
			client:         cl,
			RegistrationID: h.correlationID,
			CounterID:      ev.CounterID,
		}, true, nil
	default:
		return nil, true, nil
	}
}

// awaitHandle blocks until h resolves, driving do_work itself in invoker
// mode so a blocking Add* call still makes progress when no background
// agent goroutine is running.
func (cl *Client) awaitHandle(h *Handle) (interface{}, error) {
	idle := conductor.NewIdleStrategy()
	for {
		if cl.ctx.useConductorAgentInvoker {
			cl.DoWork()
		}
		resource, ready, err := cl.Poll(h)
		if ready {
			return resource, err
		}
		idle.Idle(0)
	}
}

// AsyncAddPublication sends ADD_PUBLICATION without blocking, returning a
// Handle to poll with Poll. This is the primary, non-blocking entry point
// for adding a publication; AddPublication is a blocking convenience built
// on top of it.
func (cl *Client) AsyncAddPublication(channel string, streamID int32) (*Handle, error) {
	cl.mu.Lock()
	correlationID, err := cl.conductor.AsyncAddPublication(channel, streamID)
	cl.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Handle{correlationID: correlationID, kind: conductor.KindPublication, channel: channel, streamID: streamID}, nil
}

// AsyncAddExclusivePublication sends ADD_EXCLUSIVE_PUBLICATION without
// blocking, returning a Handle to poll with Poll.
func (cl *Client) AsyncAddExclusivePublication(channel string, streamID int32) (*Handle, error) {
	cl.mu.Lock()
	correlationID, err := cl.conductor.AsyncAddExclusivePublication(channel, streamID)
	cl.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Handle{correlationID: correlationID, kind: conductor.KindExclusivePublication, channel: channel, streamID: streamID}, nil
}

// AsyncAddSubscription sends ADD_SUBSCRIPTION without blocking, returning a
// Handle to poll with Poll. Images arrive afterwards through
// on_available_image callbacks and Subscription.Images, independent of
// when or whether this Handle is ever polled.
func (cl *Client) AsyncAddSubscription(channel string, streamID int32) (*Handle, error) {
	cl.mu.Lock()
	correlationID, err := cl.conductor.AsyncAddSubscription(channel, streamID)
	cl.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Handle{correlationID: correlationID, kind: conductor.KindSubscription, channel: channel, streamID: streamID}, nil
}

// AsyncAddCounter sends ADD_COUNTER without blocking, returning a Handle to
// poll with Poll.
func (cl *Client) AsyncAddCounter(typeID int32, key []byte, label string) (*Handle, error) {
	cl.mu.Lock()
	correlationID, err := cl.conductor.AsyncAddCounter(typeID, key, label)
	cl.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &Handle{correlationID: correlationID, kind: conductor.KindCounter}, nil
}

func (cl *Client) mapLogFile(correlationID int64, kind conductor.Kind, logFileName string) (interface{}, error) {
	info, err := os.Stat(logFileName)
	if err != nil {
		return nil, err
	}
	termLength := logbuffer.ComputeTermLength(info.Size())
	region, err := mmap.Open(logFileName, info.Size(), false)
	if err != nil {
		return nil, err
	}
	lb, err := logbuffer.WrapMapped(region, region.Buffer(), termLength)
	if err != nil {
		_ = region.Close()
		return nil, err
	}
	return lb, nil
}

func (cl *Client) handleAvailableImage(ev conductor.AvailableImage) {
	cl.mu.Lock()
	sub, ok := cl.subscriptions[ev.SubscriptionRegistrationID]
	cl.mu.Unlock()
	if !ok {
		return
	}

	var log *logbuffer.LogBuffer
	if ev.LogFileName != "" {
		if resource, err := cl.mapLogFile(ev.ImageCorrelationID, conductor.KindSubscription, ev.LogFileName); err == nil {
			log, _ = resource.(*logbuffer.LogBuffer)
		}
	}

	sub.addImage(&Image{
		ImageCorrelationID:         ev.ImageCorrelationID,
		SessionID:                  ev.SessionID,
		StreamID:                   ev.StreamID,
		SubscriptionRegistrationID: ev.SubscriptionRegistrationID,
		SourceIdentity:             ev.SourceIdentity,
		log:                        log,
	})
}

func (cl *Client) handleUnavailableImage(ev conductor.UnavailableImage) {
	cl.mu.Lock()
	sub, ok := cl.subscriptions[ev.SubscriptionRegistrationID]
	cl.mu.Unlock()
	if !ok {
		return
	}
	sub.removeImage(ev.ImageCorrelationID)
}

func (cl *Client) handleAuditEvent(ev conductor.AuditEvent) {
	kind := audit.KindDriverError
	switch ev.Kind {
	case "driver_dead":
		kind = audit.KindDriverDead
	case "broadcast_loss":
		kind = audit.KindBroadcastLoss
	}

	if kind == audit.KindDriverError && cl.telemetry != nil {
		cl.telemetry.RecordDriverError(context.Background())
	}

	if cl.auditSink == nil {
		return
	}
	cl.auditSink.Record(audit.Entry{
		Kind:          kind,
		TimestampMs:   cl.epochClock().TimeMs(),
		CorrelationID: ev.CorrelationID,
		Message:       ev.Message,
	})
}

// lingerUnmap schedules log's backing mapping to be closed once
// resource_linger_duration_ns elapses. A nil log (no log-backed resource,
// e.g. a Counter) is a no-op.
func (cl *Client) lingerUnmap(resourceID int64, log *logbuffer.LogBuffer) {
	if log == nil {
		return
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	deadline := cl.nanoClock().TimeNs() + cl.ctx.resourceLingerDurationNs
	cl.lifecycleScheduler.Schedule(resourceID, deadline, log)
}

// startAddSpan opens a trace span covering one async add round trip when a
// Telemetry is configured; the returned func ends it. With no Telemetry
// configured it is a no-op.
func (cl *Client) startAddSpan(kind string) func() {
	if cl.telemetry == nil {
		return func() {}
	}
	_, span := cl.telemetry.StartAsyncAdd(context.Background(), kind)
	return func() { span.End() }
}

// AddPublication registers a shared publication and blocks until the
// driver confirms it or reports an error. It is a convenience wrapper over
// AsyncAddPublication plus Poll for callers who don't need the non-blocking
// two-call contract; AsyncAddPublication/Poll remain the primary surface.
func (cl *Client) AddPublication(channel string, streamID int32) (*Publication, error) {
	defer cl.startAddSpan("publication")()
	h, err := cl.AsyncAddPublication(channel, streamID)
	if err != nil {
		return nil, err
	}
	resource, err := cl.awaitHandle(h)
	if err != nil {
		return nil, err
	}
	pub, _ := resource.(*Publication)
	return pub, nil
}

// AddExclusivePublication registers an exclusive publication and blocks
// until the driver confirms it or reports an error. It is a convenience
// wrapper over AsyncAddExclusivePublication plus Poll.
func (cl *Client) AddExclusivePublication(channel string, streamID int32) (*ExclusivePublication, error) {
	defer cl.startAddSpan("exclusive_publication")()
	h, err := cl.AsyncAddExclusivePublication(channel, streamID)
	if err != nil {
		return nil, err
	}
	resource, err := cl.awaitHandle(h)
	if err != nil {
		return nil, err
	}
	pub, _ := resource.(*ExclusivePublication)
	return pub, nil
}

// AddSubscription registers a subscription and blocks until the driver
// confirms it or reports an error. Images arrive afterwards through
// on_available_image callbacks and Subscription.Images. It is a
// convenience wrapper over AsyncAddSubscription plus Poll.
func (cl *Client) AddSubscription(channel string, streamID int32) (*Subscription, error) {
	defer cl.startAddSpan("subscription")()
	h, err := cl.AsyncAddSubscription(channel, streamID)
	if err != nil {
		return nil, err
	}
	resource, err := cl.awaitHandle(h)
	if err != nil {
		return nil, err
	}
	sub, _ := resource.(*Subscription)
	return sub, nil
}

// AddCounter registers a counter and blocks until the driver confirms it
// or reports an error. It is a convenience wrapper over AsyncAddCounter
// plus Poll.
func (cl *Client) AddCounter(typeID int32, key []byte, label string) (*Counter, error) {
	defer cl.startAddSpan("counter")()
	h, err := cl.AsyncAddCounter(typeID, key, label)
	if err != nil {
		return nil, err
	}
	resource, err := cl.awaitHandle(h)
	if err != nil {
		return nil, err
	}
	counter, _ := resource.(*Counter)
	return counter, nil
}

// DriverStatus reports the client's current view of driver liveness,
// satisfying api.HealthChecker.
func (cl *Client) DriverStatus() (health.DriverStatus, error) {
	return health.Check(cl.conductor, cl.driverPid)
}

// IsDriverDead and IsBroadcastLoss forward the conductor's sticky flags,
// letting Client itself satisfy internal/health.Conductor so a host can
// wire adapter.NewHealthHandler(client, client.DriverPid()) directly.
func (cl *Client) IsDriverDead() bool    { return cl.conductor.IsDriverDead() }
func (cl *Client) IsBroadcastLoss() bool { return cl.conductor.IsBroadcastLoss() }

// DriverPid returns the driver process id read out of the CnC metadata.
func (cl *Client) DriverPid() int64 { return cl.driverPid }

// PendingUnmaps reports how many closed resources are still lingering
// before their log mapping unmaps, satisfying pkg/lifecycle.Observer.
func (cl *Client) PendingUnmaps() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.lifecycleScheduler.PendingCount()
}

// Close stops the background agent goroutine if one is running, tears
// down the conductor, drains every lingering resource immediately, and
// unmaps the CnC file.
func (cl *Client) Close() error {
	if !cl.closed.CompareAndSwap(false, true) {
		return nil
	}

	if cl.stopAgent != nil {
		close(cl.stopAgent)
		<-cl.agentDone
	}

	cl.mu.Lock()
	cl.conductor.OnClose()
	cl.lifecycleScheduler.Drain()
	cl.mu.Unlock()

	return cl.cncRegion.Close()
}
