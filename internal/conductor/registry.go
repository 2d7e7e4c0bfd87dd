// Package conductor implements the client-side conductor: the
// correlation registry, command encoder, event dispatcher, idle strategy,
// and the do_work loop that ties them together with the ring and
// broadcast buffers.
package conductor

import (
	"github.com/Workiva/go-datastructures/queue"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// HandleState is the lifecycle of an async add/remove request.
type HandleState int32

const (
	// Pending means the command has been sent and no response has
	// arrived yet.
	Pending HandleState = iota
	// Ready means the driver responded with success and the resource is
	// available.
	Ready
	// Errored means the driver responded with ON_ERROR.
	Errored
	// TimedOut means no response arrived within driver_timeout_ms.
	TimedOut
	// Closed means the caller abandoned the handle before it resolved.
	Closed
)

func (s HandleState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Ready:
		return "READY"
	case Errored:
		return "ERRORED"
	case TimedOut:
		return "TIMED_OUT"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Kind distinguishes what a Handle is waiting to become.
type Kind int32

const (
	KindPublication Kind = iota
	KindExclusivePublication
	KindSubscription
	KindCounter
)

// Handle is the registry's owned record for one in-flight request. The
// registry is the sole mutator; callers observe state via the conductor's
// poll methods, which check validity against the registry rather than
// trusting a caller-held pointer.
type Handle struct {
	CorrelationID int64
	Kind          Kind
	State         HandleState
	DeadlineNs    int64

	// Populated on a Ready transition: the mapped log resource for a
	// log-backed kind (returned by the LogFileMapper), nil otherwise.
	Resource interface{}

	// Populated on a Ready transition with the decoded ON_*_READY event
	// itself (PublicationReady, SubscriptionReady, or CounterReady), so a
	// caller can read fields Resource does not carry (stream id, session
	// id, counter id, status indicator id).
	Metadata interface{}

	// Populated on an Errored transition.
	ErrorCode    int32
	ErrorMessage string
}

type deadlineItem struct {
	correlationID int64
	deadlineNs    int64
}

// Compare implements queue.Item so the earliest deadline sorts first.
func (d *deadlineItem) Compare(other queue.Item) int {
	o := other.(*deadlineItem)
	switch {
	case d.deadlineNs < o.deadlineNs:
		return -1
	case d.deadlineNs > o.deadlineNs:
		return 1
	default:
		return 0
	}
}

// Registry maps correlation ids to Handles and sweeps Pending handles past
// their deadline. It is mutated both from caller threads (Insert in the
// async adds, Remove in Poll) and from the do_work thread; the conductor
// serialises those calls with its own mutex.
type Registry struct {
	handles   cmap.ConcurrentMap[int64, *Handle]
	deadlines *queue.PriorityQueue
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handles:   cmap.NewWithCustomShardingFunction[int64, *Handle](correlationIDShard),
		deadlines: queue.NewPriorityQueue(64, false),
	}
}

func correlationIDShard(key int64) uint32 {
	return uint32(key) ^ uint32(key>>32)
}

// Insert adds a new Pending handle and schedules its deadline.
func (r *Registry) Insert(h *Handle) {
	r.handles.Set(h.CorrelationID, h)
	_ = r.deadlines.Put(&deadlineItem{correlationID: h.CorrelationID, deadlineNs: h.DeadlineNs})
}

// Get returns the handle for id, or nil if it is absent (removed, or never
// registered — callers treat a miss as "ignore the event").
func (r *Registry) Get(id int64) *Handle {
	h, ok := r.handles.Get(id)
	if !ok {
		return nil
	}
	return h
}

// Remove deletes id's handle, used both by close_* and once a handle
// reaches a terminal state the caller has already observed.
func (r *Registry) Remove(id int64) {
	r.handles.Remove(id)
}

// Count returns the number of tracked handles, used for the occupancy
// metric.
func (r *Registry) Count() int {
	return r.handles.Count()
}

// SweepExpired transitions every still-Pending handle whose deadline has
// elapsed to TimedOut, implementing P6. Handles already resolved by the
// time their deadline entry is popped are left untouched.
func (r *Registry) SweepExpired(nowNs int64) int {
	expired := 0
	for {
		item := r.deadlines.Peek()
		if item == nil {
			break
		}
		d := item.(*deadlineItem)
		if d.deadlineNs > nowNs {
			break
		}

		popped, err := r.deadlines.Get(1)
		if err != nil || len(popped) == 0 {
			break
		}

		h, ok := r.handles.Get(d.correlationID)
		if ok && h.State == Pending {
			h.State = TimedOut
			expired++
		}
	}
	return expired
}
