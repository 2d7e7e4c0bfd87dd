package logbuffer

import (
	"fmt"
	"io"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

// LogBuffer is a mapped log file's three term partitions plus its metadata
// trailer, sliced out of one contiguous mapped region the same way
// internal/cnc slices the CnC region into its sub-buffers.
type LogBuffer struct {
	TermLength int32
	Partitions [PartitionCount]*atomic.Buffer
	Metadata   *atomic.Buffer

	mapping io.Closer
}

// Wrap slices region (term_length*3 + MetaDataLength bytes, per spec.md §3)
// into its three partitions and trailing metadata. The returned LogBuffer's
// Close is a no-op; use WrapMapped when region backs an actual mmap that
// must be unmapped once the resource lingers out.
func Wrap(region *atomic.Buffer, termLength int32) (*LogBuffer, error) {
	if err := CheckTermLength(termLength); err != nil {
		return nil, err
	}

	expected := int64(termLength)*int64(PartitionCount) + int64(MetaDataLength)
	if int64(region.Capacity()) != expected {
		return nil, fmt.Errorf("logbuffer: region length %d does not match term_length*3+metadata %d", region.Capacity(), expected)
	}

	lb := &LogBuffer{TermLength: termLength}
	offset := 0
	for i := 0; i < PartitionCount; i++ {
		lb.Partitions[i] = region.Slice(offset, int(termLength))
		offset += int(termLength)
	}
	lb.Metadata = region.Slice(offset, MetaDataLength)
	return lb, nil
}

// WrapMapped behaves like Wrap but records mapping so Close unmaps the
// backing file once the resource's linger deadline elapses.
func WrapMapped(mapping io.Closer, region *atomic.Buffer, termLength int32) (*LogBuffer, error) {
	lb, err := Wrap(region, termLength)
	if err != nil {
		return nil, err
	}
	lb.mapping = mapping
	return lb, nil
}

// Close unmaps the backing file, if WrapMapped supplied one.
func (lb *LogBuffer) Close() error {
	if lb.mapping == nil {
		return nil
	}
	return lb.mapping.Close()
}

// ActivePartition returns the partition currently being written to,
// according to the metadata trailer's active_partition_index field.
func (lb *LogBuffer) ActivePartition() *atomic.Buffer {
	return lb.Partitions[ActivePartitionIndex(lb.Metadata)]
}
