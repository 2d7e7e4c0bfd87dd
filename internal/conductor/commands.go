package conductor

import (
	"encoding/binary"

	"github.com/valyala/bytebufferpool"

	"github.com/aeron-go-client/aeron/internal/ringbuffer"
)

// CommandTypeID identifies a to-driver command frame. Values mirror the
// existing wire contract and must be used verbatim for driver
// interoperability.
type CommandTypeID int32

const (
	AddPublication          CommandTypeID = 0x01
	RemovePublication       CommandTypeID = 0x02
	AddSubscription         CommandTypeID = 0x04
	RemoveSubscription      CommandTypeID = 0x05
	ClientKeepalive         CommandTypeID = 0x06
	AddExclusivePublication CommandTypeID = 0x09
	AddCounter              CommandTypeID = 0x0D
	RemoveCounter           CommandTypeID = 0x0E
)

func (c CommandTypeID) String() string {
	switch c {
	case AddPublication:
		return "ADD_PUBLICATION"
	case RemovePublication:
		return "REMOVE_PUBLICATION"
	case AddSubscription:
		return "ADD_SUBSCRIPTION"
	case RemoveSubscription:
		return "REMOVE_SUBSCRIPTION"
	case ClientKeepalive:
		return "CLIENT_KEEPALIVE"
	case AddExclusivePublication:
		return "ADD_EXCLUSIVE_PUBLICATION"
	case AddCounter:
		return "ADD_COUNTER"
	case RemoveCounter:
		return "REMOVE_COUNTER"
	default:
		return "UNKNOWN_COMMAND"
	}
}

var byteOrder = binary.LittleEndian

func putInt64(buf *bytebufferpool.ByteBuffer, v int64) {
	var b [8]byte
	byteOrder.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func putInt32(buf *bytebufferpool.ByteBuffer, v int32) {
	var b [4]byte
	byteOrder.PutUint32(b[:], uint32(v))
	buf.Write(b[:])
}

func putLengthPrefixed(buf *bytebufferpool.ByteBuffer, s []byte) {
	putInt32(buf, int32(len(s)))
	buf.Write(s)
}

// Encoder builds command frames and writes them into the to-driver ring.
// Variable-length fields (channel URIs, counter keys and labels) are
// staged in a pooled byte buffer before the single copy into the ring's
// claimed slot, avoiding a fresh allocation per command.
type Encoder struct {
	ring     *ringbuffer.ManyToOneRingBuffer
	clientID int64
}

// NewEncoder constructs an Encoder writing into ring on behalf of
// clientID.
func NewEncoder(ring *ringbuffer.ManyToOneRingBuffer, clientID int64) *Encoder {
	return &Encoder{ring: ring, clientID: clientID}
}

func (e *Encoder) write(typeID CommandTypeID, build func(buf *bytebufferpool.ByteBuffer)) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	build(buf)
	return e.ring.Write(int32(typeID), buf.Bytes())
}

// AddPublication encodes ADD_PUBLICATION(stream_id, channel).
func (e *Encoder) AddPublication(correlationID int64, streamID int32, channel string) error {
	return e.write(AddPublication, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt32(buf, streamID)
		putLengthPrefixed(buf, []byte(channel))
	})
}

// AddExclusivePublication encodes ADD_EXCLUSIVE_PUBLICATION(stream_id, channel).
func (e *Encoder) AddExclusivePublication(correlationID int64, streamID int32, channel string) error {
	return e.write(AddExclusivePublication, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt32(buf, streamID)
		putLengthPrefixed(buf, []byte(channel))
	})
}

// RemovePublication encodes REMOVE_PUBLICATION(registration_id).
func (e *Encoder) RemovePublication(correlationID, registrationID int64) error {
	return e.write(RemovePublication, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt64(buf, registrationID)
	})
}

// AddSubscription encodes ADD_SUBSCRIPTION(stream_id, channel).
func (e *Encoder) AddSubscription(correlationID int64, streamID int32, channel string) error {
	return e.write(AddSubscription, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt32(buf, streamID)
		putLengthPrefixed(buf, []byte(channel))
	})
}

// RemoveSubscription encodes REMOVE_SUBSCRIPTION(registration_id).
func (e *Encoder) RemoveSubscription(correlationID, registrationID int64) error {
	return e.write(RemoveSubscription, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt64(buf, registrationID)
	})
}

// AddCounter encodes ADD_COUNTER(type_id, key_bytes, label).
func (e *Encoder) AddCounter(correlationID int64, typeID int32, key []byte, label string) error {
	return e.write(AddCounter, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt32(buf, typeID)
		putLengthPrefixed(buf, key)
		putLengthPrefixed(buf, []byte(label))
	})
}

// RemoveCounter encodes REMOVE_COUNTER(registration_id).
func (e *Encoder) RemoveCounter(correlationID, registrationID int64) error {
	return e.write(RemoveCounter, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
		putInt64(buf, correlationID)
		putInt64(buf, registrationID)
	})
}

// ClientKeepalive encodes CLIENT_KEEPALIVE, sent on every keepalive_interval_ms tick.
func (e *Encoder) ClientKeepalive() error {
	return e.write(ClientKeepalive, func(buf *bytebufferpool.ByteBuffer) {
		putInt64(buf, e.clientID)
	})
}
