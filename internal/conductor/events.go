package conductor

import (
	"encoding/binary"
)

// EventTypeID identifies a to-clients broadcast event frame.
type EventTypeID int32

const (
	OnPublicationReady          EventTypeID = 0x20
	OnExclusivePublicationReady EventTypeID = 0x21
	OnSubscriptionReady         EventTypeID = 0x22
	OnAvailableImage            EventTypeID = 0x23
	OnUnavailableImage          EventTypeID = 0x24
	OnCounterReady              EventTypeID = 0x25
	OnError                     EventTypeID = 0x26
)

func (e EventTypeID) String() string {
	switch e {
	case OnPublicationReady:
		return "ON_PUBLICATION_READY"
	case OnExclusivePublicationReady:
		return "ON_EXCLUSIVE_PUBLICATION_READY"
	case OnSubscriptionReady:
		return "ON_SUBSCRIPTION_READY"
	case OnAvailableImage:
		return "ON_AVAILABLE_IMAGE"
	case OnUnavailableImage:
		return "ON_UNAVAILABLE_IMAGE"
	case OnCounterReady:
		return "ON_COUNTER_READY"
	case OnError:
		return "ON_ERROR"
	default:
		return "UNKNOWN_EVENT"
	}
}

// PublicationReady carries the fields common to ON_PUBLICATION_READY and
// ON_EXCLUSIVE_PUBLICATION_READY.
type PublicationReady struct {
	CorrelationID            int64
	RegistrationID           int64
	StreamID                 int32
	SessionID                int32
	PositionLimitCounterID   int32
	ChannelStatusIndicatorID int32
	LogFileName              string
}

// SubscriptionReady carries ON_SUBSCRIPTION_READY's fields.
type SubscriptionReady struct {
	CorrelationID            int64
	ChannelStatusIndicatorID int32
}

// AvailableImage carries ON_AVAILABLE_IMAGE's fields.
type AvailableImage struct {
	CorrelationID              int64
	ImageCorrelationID         int64
	SessionID                  int32
	StreamID                   int32
	SubscriptionRegistrationID int64
	LogFileName                string
	SourceIdentity             string
}

// UnavailableImage carries ON_UNAVAILABLE_IMAGE's fields.
type UnavailableImage struct {
	ImageCorrelationID         int64
	SubscriptionRegistrationID int64
}

// CounterReady carries ON_COUNTER_READY's fields.
type CounterReady struct {
	CorrelationID int64
	CounterID     int32
}

// ErrorResponse carries ON_ERROR's fields.
type ErrorResponse struct {
	OffendingCorrelationID int64
	ErrorCode              int32
	ErrorMessage           string
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) int64() int64 {
	v := int64(binary.LittleEndian.Uint64(r.data[r.pos:]))
	r.pos += 8
	return v
}

func (r *byteReader) int32() int32 {
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v
}

func (r *byteReader) lengthPrefixed() string {
	length := r.int32()
	s := string(r.data[r.pos : r.pos+int(length)])
	r.pos += int(length)
	return s
}

type byteWriter struct {
	data []byte
}

func (w *byteWriter) putInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.data = append(w.data, b[:]...)
}

func (w *byteWriter) putInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.data = append(w.data, b[:]...)
}

func (w *byteWriter) putLengthPrefixed(s string) {
	w.putInt32(int32(len(s)))
	w.data = append(w.data, []byte(s)...)
}

// DecodePublicationReady decodes the common ON_PUBLICATION_READY /
// ON_EXCLUSIVE_PUBLICATION_READY payload.
func DecodePublicationReady(msg []byte) PublicationReady {
	r := &byteReader{data: msg}
	return PublicationReady{
		CorrelationID:            r.int64(),
		RegistrationID:           r.int64(),
		StreamID:                 r.int32(),
		SessionID:                r.int32(),
		PositionLimitCounterID:   r.int32(),
		ChannelStatusIndicatorID: r.int32(),
		LogFileName:              r.lengthPrefixed(),
	}
}

// EncodePublicationReady builds the wire payload for a PublicationReady
// event. Used by tests that play the driver's part.
func EncodePublicationReady(ev PublicationReady) []byte {
	w := &byteWriter{}
	w.putInt64(ev.CorrelationID)
	w.putInt64(ev.RegistrationID)
	w.putInt32(ev.StreamID)
	w.putInt32(ev.SessionID)
	w.putInt32(ev.PositionLimitCounterID)
	w.putInt32(ev.ChannelStatusIndicatorID)
	w.putLengthPrefixed(ev.LogFileName)
	return w.data
}

// DecodeSubscriptionReady decodes ON_SUBSCRIPTION_READY.
func DecodeSubscriptionReady(msg []byte) SubscriptionReady {
	r := &byteReader{data: msg}
	return SubscriptionReady{
		CorrelationID:            r.int64(),
		ChannelStatusIndicatorID: r.int32(),
	}
}

// EncodeSubscriptionReady builds the wire payload for a SubscriptionReady
// event.
func EncodeSubscriptionReady(ev SubscriptionReady) []byte {
	w := &byteWriter{}
	w.putInt64(ev.CorrelationID)
	w.putInt32(ev.ChannelStatusIndicatorID)
	return w.data
}

// DecodeAvailableImage decodes ON_AVAILABLE_IMAGE.
func DecodeAvailableImage(msg []byte) AvailableImage {
	r := &byteReader{data: msg}
	return AvailableImage{
		CorrelationID:              r.int64(),
		ImageCorrelationID:         r.int64(),
		SessionID:                  r.int32(),
		StreamID:                   r.int32(),
		SubscriptionRegistrationID: r.int64(),
		LogFileName:                r.lengthPrefixed(),
		SourceIdentity:             r.lengthPrefixed(),
	}
}

// EncodeAvailableImage builds the wire payload for an AvailableImage
// event.
func EncodeAvailableImage(ev AvailableImage) []byte {
	w := &byteWriter{}
	w.putInt64(ev.CorrelationID)
	w.putInt64(ev.ImageCorrelationID)
	w.putInt32(ev.SessionID)
	w.putInt32(ev.StreamID)
	w.putInt64(ev.SubscriptionRegistrationID)
	w.putLengthPrefixed(ev.LogFileName)
	w.putLengthPrefixed(ev.SourceIdentity)
	return w.data
}

// DecodeUnavailableImage decodes ON_UNAVAILABLE_IMAGE.
func DecodeUnavailableImage(msg []byte) UnavailableImage {
	r := &byteReader{data: msg}
	return UnavailableImage{
		ImageCorrelationID:         r.int64(),
		SubscriptionRegistrationID: r.int64(),
	}
}

// EncodeUnavailableImage builds the wire payload for an UnavailableImage
// event.
func EncodeUnavailableImage(ev UnavailableImage) []byte {
	w := &byteWriter{}
	w.putInt64(ev.ImageCorrelationID)
	w.putInt64(ev.SubscriptionRegistrationID)
	return w.data
}

// DecodeCounterReady decodes ON_COUNTER_READY.
func DecodeCounterReady(msg []byte) CounterReady {
	r := &byteReader{data: msg}
	return CounterReady{
		CorrelationID: r.int64(),
		CounterID:     r.int32(),
	}
}

// EncodeCounterReady builds the wire payload for a CounterReady event.
func EncodeCounterReady(ev CounterReady) []byte {
	w := &byteWriter{}
	w.putInt64(ev.CorrelationID)
	w.putInt32(ev.CounterID)
	return w.data
}

// DecodeError decodes ON_ERROR.
func DecodeError(msg []byte) ErrorResponse {
	r := &byteReader{data: msg}
	return ErrorResponse{
		OffendingCorrelationID: r.int64(),
		ErrorCode:              r.int32(),
		ErrorMessage:           r.lengthPrefixed(),
	}
}

// EncodeError builds the wire payload for an ErrorResponse event.
func EncodeError(ev ErrorResponse) []byte {
	w := &byteWriter{}
	w.putInt64(ev.OffendingCorrelationID)
	w.putInt32(ev.ErrorCode)
	w.putLengthPrefixed(ev.ErrorMessage)
	return w.data
}
