// Package ringbuffer implements the lock-free many-producer/single-consumer
// command channel used to send ADD_*/REMOVE_* frames to the driver. The
// trailer layout is grounded bit-for-bit on original_source's
// uk.co.real_logic.aeron.util.concurrent.ringbuffer.RingBufferDescriptor.
package ringbuffer

import "fmt"

const (
	cacheLineLength = 64

	// TailCounterOffset is the producer sequence counter.
	TailCounterOffset = 0
	// HeadCounterOffset is the consumer sequence counter.
	HeadCounterOffset = cacheLineLength
	// CorrelationCounterOffset is the monotonic correlation id allocator.
	CorrelationCounterOffset = cacheLineLength * 2
	// ConsumerHeartbeatOffset stores the consumer's (the driver's) liveness
	// timestamp, read by the client to detect a dead driver.
	ConsumerHeartbeatOffset = cacheLineLength * 3
	// TrailerLength is the total trailer size appended after the
	// power-of-two capacity region.
	TrailerLength = cacheLineLength * 4

	// RecordAlignment is the alignment every record header/payload pair
	// must respect.
	RecordAlignment = 8

	// recordHeaderLength is the length of the length-prefix + type-id
	// record header preceding every payload.
	recordHeaderLength = 8

	// paddingMsgTypeID marks a record as padding inserted to avoid
	// wrapping a record around the end of the capacity region.
	paddingMsgTypeID int32 = -1
)

// ErrInsufficientSpace is returned by Write when the ring does not have
// room for the requested record.
var ErrInsufficientSpace = fmt.Errorf("ringbuffer: insufficient space")

// AlignedLength rounds length up to the next multiple of RecordAlignment.
func AlignedLength(length int32) int32 {
	return (length + RecordAlignment - 1) &^ (RecordAlignment - 1)
}

// checkCapacity validates that capacity is a power of two, per spec.md §4.B.
func checkCapacity(capacity int32) error {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return fmt.Errorf("ringbuffer: capacity %d is not a power of two", capacity)
	}
	return nil
}
