package ringbuffer

import (
	"fmt"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

// Handler is invoked once per record read from the ring. It must not
// retain msg past the call.
type Handler func(typeID int32, msg []byte)

// ManyToOneRingBuffer is the lock-free MPSC channel from client to driver
// described in spec.md §4.B: producers reserve space via a CAS loop on the
// tail counter, the single consumer drains from head, and a correlation
// counter in the trailer is the sole id source for component F.
type ManyToOneRingBuffer struct {
	buffer   *atomic.Buffer
	capacity int32
	mask     int32
}

// Wrap constructs a ManyToOneRingBuffer over region, which must be
// capacity+TrailerLength bytes with capacity a power of two.
func Wrap(region *atomic.Buffer, capacity int32) (*ManyToOneRingBuffer, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	if int32(region.Capacity()) != capacity+TrailerLength {
		return nil, fmt.Errorf("ringbuffer: region length %d does not match capacity %d plus trailer", region.Capacity(), capacity+TrailerLength)
	}
	return &ManyToOneRingBuffer{
		buffer:   region,
		capacity: capacity,
		mask:     capacity - 1,
	}, nil
}

// Capacity returns the usable capacity region length, excluding the
// trailer.
func (r *ManyToOneRingBuffer) Capacity() int32 { return r.capacity }

// Write claims space for a record of msgTypeID carrying msg, writes it,
// and publishes it. It returns ErrInsufficientSpace if the ring is full.
func (r *ManyToOneRingBuffer) Write(msgTypeID int32, msg []byte) error {
	recordLength := int32(recordHeaderLength + len(msg))
	required := AlignedLength(recordLength)

	recordOffset, err := r.claimCapacity(required)
	if err != nil {
		return err
	}

	r.buffer.PutInt32Ordered(lengthOffset(recordOffset), -recordLength)
	r.buffer.PutInt32(typeOffset(recordOffset), msgTypeID)
	r.buffer.PutBytes(encodedMsgOffset(recordOffset), msg, 0, len(msg))
	r.buffer.PutInt32Ordered(lengthOffset(recordOffset), recordLength)

	return nil
}

// claimCapacity runs the spec's reserve loop: check space against the
// volatile head, pad to the end of the buffer if the record would wrap,
// and CAS the tail forward. It returns the byte offset within the capacity
// region (the tail already masked by capacity-1) at which the record
// header begins.
func (r *ManyToOneRingBuffer) claimCapacity(required int32) (int32, error) {
	for {
		head := r.buffer.GetInt64Volatile(HeadCounterOffset)
		tail := r.buffer.GetInt64Volatile(TailCounterOffset)
		availableCapacity := r.capacity - int32(tail-head)

		if required > availableCapacity {
			return 0, ErrInsufficientSpace
		}

		tailIndex := int32(tail & int64(r.mask))
		toBufferEnd := r.capacity - tailIndex

		if required > toBufferEnd {
			// Not enough contiguous room before wrapping: pad the
			// remainder and retry the whole reservation.
			if int32(tail-head)+toBufferEnd > r.capacity {
				// Padding itself would not fit either; genuinely full.
				return 0, ErrInsufficientSpace
			}
			if r.buffer.CompareAndSwapUint64(TailCounterOffset, uint64(tail), uint64(tail+int64(toBufferEnd))) {
				r.buffer.PutInt32Ordered(lengthOffset(tailIndex), -toBufferEnd)
				r.buffer.PutInt32(typeOffset(tailIndex), paddingMsgTypeID)
				r.buffer.PutInt32Ordered(lengthOffset(tailIndex), toBufferEnd)
			}
			continue
		}

		newTail := tail + int64(required)
		if r.buffer.CompareAndSwapUint64(TailCounterOffset, uint64(tail), uint64(newTail)) {
			return tailIndex, nil
		}
	}
}

// Read drains up to messageLimit published records starting from head,
// invoking handler for each non-padding record, and advances head with
// release semantics. It returns the number of records handled.
func (r *ManyToOneRingBuffer) Read(handler Handler, messageLimit int) int {
	head := r.buffer.GetInt64Volatile(HeadCounterOffset)
	bytesConsumed := int32(0)
	messagesRead := 0

	for messagesRead < messageLimit && bytesConsumed < r.capacity {
		recordIndex := int32(head+int64(bytesConsumed)) & r.mask
		length := r.buffer.GetInt32Volatile(lengthOffset(recordIndex))
		if length <= 0 {
			break
		}

		typeID := r.buffer.GetInt32(typeOffset(recordIndex))
		alignedLength := AlignedLength(length)

		if typeID != paddingMsgTypeID {
			msg := r.buffer.GetBytes(encodedMsgOffset(recordIndex), int(length)-recordHeaderLength)
			handler(typeID, msg)
			messagesRead++
		}

		r.buffer.SetMemory(int(recordIndex), int(alignedLength), 0)
		bytesConsumed += alignedLength
	}

	if bytesConsumed > 0 {
		r.buffer.PutInt64Ordered(HeadCounterOffset, head+int64(bytesConsumed))
	}

	return messagesRead
}

// Occupancy reports how many bytes of the capacity region are currently
// claimed but not yet drained, used by the occupancy metric.
func (r *ManyToOneRingBuffer) Occupancy() int32 {
	head := r.buffer.GetInt64Volatile(HeadCounterOffset)
	tail := r.buffer.GetInt64Volatile(TailCounterOffset)
	return int32(tail - head)
}

// NextCorrelationID atomically allocates the next correlation id with
// sequential consistency, the sole id source handed to component F.
func (r *ManyToOneRingBuffer) NextCorrelationID() int64 {
	return r.buffer.AddInt64Ordered(CorrelationCounterOffset, 1) - 1
}

// ConsumerHeartbeatTime stores the consumer's liveness timestamp. The
// consumer of this ring is the driver; the client reads the stamp to
// detect a dead driver.
func (r *ManyToOneRingBuffer) ConsumerHeartbeatTime(nowMs int64) {
	r.buffer.PutInt64Ordered(ConsumerHeartbeatOffset, nowMs)
}

// ConsumerHeartbeatTimeValue reads the trailer's consumer-liveness stamp,
// the driver heartbeat the conductor checks for driver liveness.
func (r *ManyToOneRingBuffer) ConsumerHeartbeatTimeValue() int64 {
	return r.buffer.GetInt64Volatile(ConsumerHeartbeatOffset)
}

func lengthOffset(recordOffset int32) int {
	return int(recordOffset)
}

func typeOffset(recordOffset int32) int {
	return int(recordOffset) + 4
}

func encodedMsgOffset(recordOffset int32) int {
	return int(recordOffset) + recordHeaderLength
}
