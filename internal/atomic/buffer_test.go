package atomic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInt32PlainRoundTrip(t *testing.T) {
	buf := Wrap(make([]byte, 16))
	buf.PutInt32(4, -42)
	require.Equal(t, int32(-42), buf.GetInt32(4))
}

func TestInt64VolatileOrderedRoundTrip(t *testing.T) {
	buf := Wrap(make([]byte, 32))
	buf.PutInt64Ordered(8, 123456789)
	require.Equal(t, int64(123456789), buf.GetInt64Volatile(8))
}

func TestCompareAndSwapUint64(t *testing.T) {
	buf := Wrap(make([]byte, 8))
	buf.PutUint64Ordered(0, 10)

	require.True(t, buf.CompareAndSwapUint64(0, 10, 20))
	require.Equal(t, uint64(20), buf.GetUint64Volatile(0))

	require.False(t, buf.CompareAndSwapUint64(0, 10, 30))
	require.Equal(t, uint64(20), buf.GetUint64Volatile(0))
}

func TestAddInt64Ordered(t *testing.T) {
	buf := Wrap(make([]byte, 8))
	require.Equal(t, int64(1), buf.AddInt64Ordered(0, 1))
	require.Equal(t, int64(2), buf.AddInt64Ordered(0, 1))
}

func TestPutBytesAndGetBytes(t *testing.T) {
	buf := Wrap(make([]byte, 16))
	src := []byte("hello-world")
	buf.PutBytes(2, src, 0, len(src))
	require.Equal(t, src, buf.GetBytes(2, len(src)))
}

func TestMisalignedAccessPanics(t *testing.T) {
	buf := Wrap(make([]byte, 16))
	require.Panics(t, func() { buf.GetInt64Volatile(1) })
}

func TestOutOfBoundsPanics(t *testing.T) {
	buf := Wrap(make([]byte, 8))
	require.Panics(t, func() { buf.GetInt64Volatile(8) })
}

func TestSlice(t *testing.T) {
	buf := Wrap(make([]byte, 32))
	sub := buf.Slice(8, 16)
	sub.PutInt32(0, 7)
	require.Equal(t, int32(7), buf.GetInt32(8))
}
