// Package counters implements the read side of the two parallel counter
// regions (a dense values array and a metadata region) that the driver
// populates and the client only ever observes. Layout is grounded on
// spec.md §3/§4.E's description of the regions; the client conductor never
// allocates a counter id, it only resolves ids the driver hands back.
package counters

import (
	"fmt"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

const (
	// CounterLength is the stride of a single counter's slot in the
	// values region: one cache line to avoid false sharing between
	// adjacent counters under concurrent update by the driver.
	CounterLength = 64

	// RecordUnused, RecordAllocated and RecordReclaimed are the three
	// states a metadata record's state field takes.
	RecordUnused    int32 = 0
	RecordAllocated int32 = 1
	RecordReclaimed int32 = -1

	metadataRecordLength   = 64 * 2
	metadataStateOffset    = 0
	metadataTypeIDOffset   = 4
	metadataKeyOffset      = 8
	metadataKeyLength      = 48
	metadataLabelLenOffset = 56
	metadataLabelOffset    = 60
)

// ErrOutOfRange is returned when a counter id falls outside the mapped
// values region.
var ErrOutOfRange = fmt.Errorf("counters: id out of range")

// Reader is a read-only view over the values and metadata regions.
type Reader struct {
	values   *atomic.Buffer
	metadata *atomic.Buffer
	maxID    int32
}

// NewReader constructs a Reader over the two regions the CnC reader slices
// out for the client.
func NewReader(values, metadata *atomic.Buffer) *Reader {
	return &Reader{
		values:   values,
		metadata: metadata,
		maxID:    int32(values.Capacity() / CounterLength),
	}
}

func (r *Reader) checkID(id int32) error {
	if id < 0 || id >= r.maxID {
		return ErrOutOfRange
	}
	return nil
}

// GetCounterValue performs a volatile load of counter id's current value.
func (r *Reader) GetCounterValue(id int32) (int64, error) {
	if err := r.checkID(id); err != nil {
		return 0, err
	}
	return r.values.GetInt64Volatile(int(id) * CounterLength), nil
}

// State returns the lifecycle state of counter id's metadata record.
func (r *Reader) State(id int32) (int32, error) {
	if err := r.checkID(id); err != nil {
		return 0, err
	}
	return r.metadata.GetInt32Volatile(int(id)*metadataRecordLength + metadataStateOffset), nil
}

// TypeID returns the type id stamped on counter id's metadata record.
func (r *Reader) TypeID(id int32) (int32, error) {
	if err := r.checkID(id); err != nil {
		return 0, err
	}
	return r.metadata.GetInt32(int(id)*metadataRecordLength + metadataTypeIDOffset), nil
}

// Key returns the fixed key area bytes for counter id's metadata record.
func (r *Reader) Key(id int32) ([]byte, error) {
	if err := r.checkID(id); err != nil {
		return nil, err
	}
	base := int(id) * metadataRecordLength
	return r.metadata.GetBytes(base+metadataKeyOffset, metadataKeyLength), nil
}

// Label returns the length-prefixed label string for counter id's metadata
// record.
func (r *Reader) Label(id int32) (string, error) {
	if err := r.checkID(id); err != nil {
		return "", err
	}
	base := int(id) * metadataRecordLength
	length := r.metadata.GetInt32(base + metadataLabelLenOffset)
	if length <= 0 {
		return "", nil
	}
	return string(r.metadata.GetBytes(base+metadataLabelOffset, int(length))), nil
}

// MaxCounterID returns the highest counter id the mapped values region can
// address.
func (r *Reader) MaxCounterID() int32 {
	return r.maxID - 1
}
