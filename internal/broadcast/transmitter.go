package broadcast

import (
	"fmt"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

// Transmitter is the single-writer producer side of the channel. In
// production this role belongs to the driver, which is out of scope; this
// type exists so tests can play the driver's part, grounded on the
// transmitOnPublicationReady/transmitOnError/transmitOnSubscriptionReady/
// transmitOnCounterReady helpers used to drive the client conductor under
// test.
type Transmitter struct {
	buffer   *atomic.Buffer
	capacity int32
	mask     int32
}

// NewTransmitter constructs a Transmitter over region, which must be
// capacity+TrailerLength bytes with capacity a power of two.
func NewTransmitter(region *atomic.Buffer, capacity int32) (*Transmitter, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	if int32(region.Capacity()) != capacity+TrailerLength {
		return nil, fmt.Errorf("broadcast: region length %d does not match capacity %d plus trailer", region.Capacity(), capacity+TrailerLength)
	}
	return &Transmitter{buffer: region, capacity: capacity, mask: capacity - 1}, nil
}

// Transmit publishes a single record of msgTypeID carrying msg. It never
// blocks and never fails on space exhaustion: a full-speed producer simply
// overwrites the oldest records, which is why consumers must detect and
// recover from being lapped rather than rely on backpressure.
func (tx *Transmitter) Transmit(msgTypeID int32, msg []byte) {
	recordLength := int32(recordHeaderLength + len(msg))
	required := AlignedLength(recordLength)

	tail := tx.buffer.GetInt64Volatile(TailCounterOffset)
	recordOffset := int32(tail & int64(tx.mask))

	if required > tx.capacity-recordOffset {
		padLength := tx.capacity - recordOffset
		tx.writeRecord(recordOffset, padLength, paddingMsgTypeID, nil)
		tail += int64(padLength)
		recordOffset = 0
	}

	newTail := tail + int64(required)
	tx.buffer.PutInt64Ordered(TailIntentCounterOffset, newTail)
	tx.writeRecord(recordOffset, recordLength, msgTypeID, msg)
	tx.buffer.PutInt64Ordered(TailCounterOffset, newTail)
	tx.buffer.PutInt64Ordered(LatestCounterOffset, int64(recordOffset))
}

func (tx *Transmitter) writeRecord(recordOffset, recordLength, typeID int32, msg []byte) {
	tx.buffer.PutInt32(lengthOffset(recordOffset), recordLength)
	tx.buffer.PutInt32(typeOffset(recordOffset), typeID)
	if len(msg) > 0 {
		tx.buffer.PutBytes(encodedMsgOffset(recordOffset), msg, 0, len(msg))
	}
}
