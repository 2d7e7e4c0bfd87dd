package broadcast

import (
	"fmt"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

// Handler is invoked once per record read from the channel. It must not
// retain msg past the call.
type Handler func(typeID int32, msg []byte)

// Receiver is one consumer's read cursor over the broadcast channel. Each
// client conductor owns exactly one Receiver; many Receivers may read the
// same underlying region independently, each tracking its own cursor.
type Receiver struct {
	buffer   *atomic.Buffer
	capacity int32
	mask     int32
	cursor   int64
	lapped   bool
}

// NewReceiver constructs a Receiver over region, positioned at the current
// tail so it only observes records published after construction.
func NewReceiver(region *atomic.Buffer, capacity int32) (*Receiver, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	if int32(region.Capacity()) != capacity+TrailerLength {
		return nil, fmt.Errorf("broadcast: region length %d does not match capacity %d plus trailer", region.Capacity(), capacity+TrailerLength)
	}
	r := &Receiver{buffer: region, capacity: capacity, mask: capacity - 1}
	r.cursor = region.GetInt64Volatile(TailCounterOffset)
	return r, nil
}

// Lag reports how many bytes the producer's tail currently leads this
// receiver's cursor by, used by the broadcast consumer lag metric.
func (r *Receiver) Lag() int64 {
	return r.buffer.GetInt64Volatile(TailCounterOffset) - r.cursor
}

// Lapped reports whether the most recent Receive detected the producer had
// overwritten records the cursor had not yet consumed.
func (r *Receiver) Lapped() bool { return r.lapped }

// Receive drains up to messageLimit records, invoking handler for each
// non-padding record. If the cursor has fallen more than one capacity
// behind the producer's tail, the cursor jumps to the latest safe record
// and Lapped reports true for this call; the caller is expected to treat
// that as a fatal client error per spec, not a retryable condition.
func (r *Receiver) Receive(handler Handler, messageLimit int) int {
	r.lapped = false

	tail := r.buffer.GetInt64Volatile(TailCounterOffset)
	if tail-r.cursor > int64(r.capacity) {
		latest := r.buffer.GetInt64Volatile(LatestCounterOffset)
		r.cursor = tail - ((tail - latest) & int64(r.mask))
		r.lapped = true
		return 0
	}

	messagesRead := 0
	for messagesRead < messageLimit && r.cursor < tail {
		recordOffset := int32(r.cursor & int64(r.mask))
		length := r.buffer.GetInt32Volatile(lengthOffset(recordOffset))
		if length <= 0 {
			break
		}

		typeID := r.buffer.GetInt32(typeOffset(recordOffset))
		alignedLength := AlignedLength(length)

		if typeID != paddingMsgTypeID {
			msg := r.buffer.GetBytes(encodedMsgOffset(recordOffset), int(length)-recordHeaderLength)
			handler(typeID, msg)
			messagesRead++
		}

		r.cursor += int64(alignedLength)
	}

	// A producer that lapped us mid-read would have advanced tail past
	// what we just consumed; re-check rather than trust the snapshot.
	if newTail := r.buffer.GetInt64Volatile(TailCounterOffset); newTail-r.cursor > int64(r.capacity) {
		latest := r.buffer.GetInt64Volatile(LatestCounterOffset)
		r.cursor = newTail - ((newTail - latest) & int64(r.mask))
		r.lapped = true
	}

	return messagesRead
}
