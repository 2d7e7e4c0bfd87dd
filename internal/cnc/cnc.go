// Package cnc parses the fixed command-and-control metadata header out of
// an already-mapped region and slices the region into the sub-buffers the
// rest of the client wraps: the to-driver ring, the to-clients broadcast
// channel, the counters metadata and values regions, and the error log.
// Mapping the region is out of scope (internal/mmap hands it in already
// mapped); this package only interprets the bytes.
package cnc

import (
	"fmt"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

// Version is the metadata layout version this client understands. A
// mismatch means the driver and client were built from incompatible
// releases.
const Version int32 = 1

const (
	cncVersionOffset                  = 0
	toDriverBufferLengthOffset        = 4
	toClientsBufferLengthOffset       = 8
	counterMetadataBufferLengthOffset = 12
	counterValuesBufferLengthOffset   = 16
	errorLogBufferLengthOffset        = 20
	clientLivenessTimeoutNsOffset     = 24
	startTimestampMsOffset            = 32
	pidOffset                         = 40

	// MetaDataLength is the fixed header size preceding the five
	// variable-length regions.
	MetaDataLength = 64
)

// ErrVersionMismatch is returned when the CnC region's version field does
// not match what this client understands, or has not yet been published
// by the driver.
var ErrVersionMismatch = fmt.Errorf("cnc: version mismatch or not yet initialised")

// Metadata is the parsed fixed header.
type Metadata struct {
	Version                 int32
	ToDriverBufferLength    int32
	ToClientsBufferLength   int32
	CounterMetadataLength   int32
	CounterValuesLength     int32
	ErrorLogBufferLength    int32
	ClientLivenessTimeoutNs int64
	StartTimestampMs        int64
	Pid                     int64
}

// Descriptor is the parsed CnC region: the fixed header plus views over
// each of the five variable-length regions that follow it.
type Descriptor struct {
	Metadata        Metadata
	ToDriverBuffer  *atomic.Buffer
	ToClientsBuffer *atomic.Buffer
	CounterMetadata *atomic.Buffer
	CounterValues   *atomic.Buffer
	ErrorLog        *atomic.Buffer
}

// AwaitVersion spin-reads the version field with acquire semantics until
// it becomes non-zero, returning ErrVersionMismatch if it is non-zero but
// does not equal Version. Callers are expected to call this in a loop with
// their own backoff; it does not block internally.
func AwaitVersion(region *atomic.Buffer) (int32, error) {
	v := region.GetInt32Volatile(cncVersionOffset)
	if v == 0 {
		return 0, nil
	}
	if v != Version {
		return v, ErrVersionMismatch
	}
	return v, nil
}

// Parse reads the fixed header and slices the five variable-length
// regions out of region. Callers must have already confirmed readiness
// via AwaitVersion.
func Parse(region *atomic.Buffer) (*Descriptor, error) {
	version := region.GetInt32Volatile(cncVersionOffset)
	if version != Version {
		return nil, ErrVersionMismatch
	}

	meta := Metadata{
		Version:                 version,
		ToDriverBufferLength:    region.GetInt32(toDriverBufferLengthOffset),
		ToClientsBufferLength:   region.GetInt32(toClientsBufferLengthOffset),
		CounterMetadataLength:   region.GetInt32(counterMetadataBufferLengthOffset),
		CounterValuesLength:     region.GetInt32(counterValuesBufferLengthOffset),
		ErrorLogBufferLength:    region.GetInt32(errorLogBufferLengthOffset),
		ClientLivenessTimeoutNs: region.GetInt64(clientLivenessTimeoutNsOffset),
		StartTimestampMs:        region.GetInt64(startTimestampMsOffset),
		Pid:                     region.GetInt64(pidOffset),
	}

	required := int64(MetaDataLength) +
		int64(meta.ToDriverBufferLength) +
		int64(meta.ToClientsBufferLength) +
		int64(meta.CounterMetadataLength) +
		int64(meta.CounterValuesLength) +
		int64(meta.ErrorLogBufferLength)
	if int64(region.Capacity()) < required {
		return nil, fmt.Errorf("cnc: region length %d smaller than header-declared total %d", region.Capacity(), required)
	}

	offset := MetaDataLength
	toDriver := region.Slice(offset, int(meta.ToDriverBufferLength))
	offset += int(meta.ToDriverBufferLength)
	toClients := region.Slice(offset, int(meta.ToClientsBufferLength))
	offset += int(meta.ToClientsBufferLength)
	counterMetadata := region.Slice(offset, int(meta.CounterMetadataLength))
	offset += int(meta.CounterMetadataLength)
	counterValues := region.Slice(offset, int(meta.CounterValuesLength))
	offset += int(meta.CounterValuesLength)
	errorLog := region.Slice(offset, int(meta.ErrorLogBufferLength))

	return &Descriptor{
		Metadata:        meta,
		ToDriverBuffer:  toDriver,
		ToClientsBuffer: toClients,
		CounterMetadata: counterMetadata,
		CounterValues:   counterValues,
		ErrorLog:        errorLog,
	}, nil
}
