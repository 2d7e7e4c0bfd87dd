// Package atomic provides aligned, ordered access to a byte region used as
// the backing store for shared-memory structures (ring buffer trailers, log
// buffer metadata, counters). It is the concrete form of the teacher's
// internal/shm/atomic.go stub, generalized from bare uint64 load/store/CAS
// into a full buffer wrapper with plain, volatile, and ordered accessors.
package atomic

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Buffer wraps a byte slice and provides aligned plain/volatile/ordered
// accessors over it. Offsets are caller-supplied; misaligned or
// out-of-bounds access is a programming error and panics rather than
// returning an error, matching the "assertion" language of the design.
type Buffer struct {
	data []byte
}

// Wrap returns a Buffer over data. data is not copied; Buffer mutates it
// in place.
func Wrap(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Capacity returns the length of the wrapped region.
func (b *Buffer) Capacity() int {
	return len(b.data)
}

// Slice returns a new Buffer over a sub-region, used to carve term
// partitions and trailers out of a larger mapped region.
func (b *Buffer) Slice(offset, length int) *Buffer {
	b.checkBounds(offset, length)
	return &Buffer{data: b.data[offset : offset+length]}
}

// Bytes returns the raw backing slice. Callers must not retain it past the
// Buffer's lifetime if the region is later unmapped.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) checkBounds(offset, size int) {
	if offset < 0 || size < 0 || offset+size > len(b.data) {
		panic(fmt.Sprintf("atomic: offset=%d size=%d exceeds capacity=%d", offset, size, len(b.data)))
	}
}

func (b *Buffer) checkAligned(offset, alignment int) {
	if offset&(alignment-1) != 0 {
		panic(fmt.Sprintf("atomic: offset=%d is not %d-byte aligned", offset, alignment))
	}
}

func (b *Buffer) ptr32(offset int) *uint32 {
	b.checkBounds(offset, 4)
	b.checkAligned(offset, 4)
	return (*uint32)(unsafe.Pointer(&b.data[offset]))
}

func (b *Buffer) ptr64(offset int) *uint64 {
	b.checkBounds(offset, 8)
	b.checkAligned(offset, 8)
	return (*uint64)(unsafe.Pointer(&b.data[offset]))
}

// GetInt32 performs a plain (unordered) 32-bit load.
func (b *Buffer) GetInt32(offset int) int32 {
	return int32(*b.ptr32(offset))
}

// PutInt32 performs a plain (unordered) 32-bit store.
func (b *Buffer) PutInt32(offset int, value int32) {
	*b.ptr32(offset) = uint32(value)
}

// GetInt32Volatile performs an acquire 32-bit load.
func (b *Buffer) GetInt32Volatile(offset int) int32 {
	return int32(atomic.LoadUint32(b.ptr32(offset)))
}

// PutInt32Volatile performs a sequentially consistent 32-bit store.
func (b *Buffer) PutInt32Volatile(offset int, value int32) {
	atomic.StoreUint32(b.ptr32(offset), uint32(value))
}

// PutInt32Ordered performs a release 32-bit store.
func (b *Buffer) PutInt32Ordered(offset int, value int32) {
	atomic.StoreUint32(b.ptr32(offset), uint32(value))
}

// GetInt64 performs a plain (unordered) 64-bit load.
func (b *Buffer) GetInt64(offset int) int64 {
	return int64(*b.ptr64(offset))
}

// PutInt64 performs a plain (unordered) 64-bit store.
func (b *Buffer) PutInt64(offset int, value int64) {
	*b.ptr64(offset) = uint64(value)
}

// GetInt64Volatile performs an acquire 64-bit load.
func (b *Buffer) GetInt64Volatile(offset int) int64 {
	return int64(atomic.LoadUint64(b.ptr64(offset)))
}

// PutInt64Ordered performs a release 64-bit store.
func (b *Buffer) PutInt64Ordered(offset int, value int64) {
	atomic.StoreUint64(b.ptr64(offset), uint64(value))
}

// GetUint64Volatile performs an acquire 64-bit load of an unsigned value,
// used for packed raw-tail and sequence-counter fields.
func (b *Buffer) GetUint64Volatile(offset int) uint64 {
	return atomic.LoadUint64(b.ptr64(offset))
}

// PutUint64Ordered performs a release 64-bit store of an unsigned value.
func (b *Buffer) PutUint64Ordered(offset int, value uint64) {
	atomic.StoreUint64(b.ptr64(offset), value)
}

// CompareAndSwapUint64 performs a 64-bit CAS with sequential consistency.
func (b *Buffer) CompareAndSwapUint64(offset int, old, new uint64) bool {
	return atomic.CompareAndSwapUint64(b.ptr64(offset), old, new)
}

// AddInt64Ordered atomically adds delta to the 64-bit value at offset and
// returns the new value, used for the correlation counter's fetch_add.
func (b *Buffer) AddInt64Ordered(offset int, delta int64) int64 {
	return int64(atomic.AddUint64(b.ptr64(offset), uint64(delta)))
}

// PutBytes copies length bytes from src[srcOffset:] into the buffer at
// dstOffset. Source and destination must not overlap.
func (b *Buffer) PutBytes(dstOffset int, src []byte, srcOffset, length int) {
	b.checkBounds(dstOffset, length)
	if srcOffset < 0 || length < 0 || srcOffset+length > len(src) {
		panic(fmt.Sprintf("atomic: src range [%d:%d] exceeds len=%d", srcOffset, srcOffset+length, len(src)))
	}
	copy(b.data[dstOffset:dstOffset+length], src[srcOffset:srcOffset+length])
}

// GetBytes returns a view of length bytes starting at offset. The returned
// slice aliases the buffer.
func (b *Buffer) GetBytes(offset, length int) []byte {
	b.checkBounds(offset, length)
	return b.data[offset : offset+length]
}

// SetMemory fills length bytes starting at offset with value, used to zero
// consumed ring-buffer slots.
func (b *Buffer) SetMemory(offset, length int, value byte) {
	b.checkBounds(offset, length)
	region := b.data[offset : offset+length]
	for i := range region {
		region[i] = value
	}
}
