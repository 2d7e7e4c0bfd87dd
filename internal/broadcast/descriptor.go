// Package broadcast implements the single-producer/many-consumer event
// channel the driver uses to fan out ON_*_READY, ON_AVAILABLE_IMAGE, and
// ON_ERROR notifications to every attached client. Record framing mirrors
// internal/ringbuffer's length-prefixed layout; the trailer and the
// consumer-side loss-detection protocol are specific to a broadcast
// channel and have no ring-buffer analog.
package broadcast

import "fmt"

const (
	cacheLineLength = 64

	// TailIntentCounterOffset is stored, ordered, before a record is
	// written, announcing how far the tail is about to advance so a
	// lagging consumer can tell it has been lapped mid-read rather than
	// only after the fact.
	TailIntentCounterOffset = 0
	// TailCounterOffset is published, ordered, only after a record has
	// been fully written; consumers may safely read anything strictly
	// below it.
	TailCounterOffset = cacheLineLength
	// LatestCounterOffset holds the byte offset of the most recently
	// published record, letting a lapped consumer resynchronize to the
	// newest safe record instead of replaying from its stale cursor.
	LatestCounterOffset = cacheLineLength * 2
	// TrailerLength is the total trailer size appended after the
	// power-of-two capacity region.
	TrailerLength = cacheLineLength * 4

	// RecordAlignment for a broadcast record is a full cache line rather
	// than the ring buffer's 8 bytes: many consumer threads poll this
	// region concurrently, so record boundaries avoid false sharing.
	RecordAlignment = cacheLineLength

	// recordHeaderLength is the length-prefix + type-id header preceding
	// every payload.
	recordHeaderLength = 8

	// paddingMsgTypeID marks a record as padding inserted to avoid a
	// record wrapping around the end of the capacity region.
	paddingMsgTypeID int32 = -1
)

// ErrLapped is reported to a consumer whose cursor fell more than one
// capacity behind the producer's tail; the consumer must resynchronize.
var ErrLapped = fmt.Errorf("broadcast: consumer lapped by producer")

// AlignedLength rounds length up to the next multiple of RecordAlignment.
func AlignedLength(length int32) int32 {
	return (length + RecordAlignment - 1) &^ (RecordAlignment - 1)
}

func checkCapacity(capacity int32) error {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return fmt.Errorf("broadcast: capacity %d is not a power of two", capacity)
	}
	return nil
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
