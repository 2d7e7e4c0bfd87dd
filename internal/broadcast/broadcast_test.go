package broadcast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

func newTestChannel(t *testing.T, capacity int32) (*Transmitter, *atomic.Buffer) {
	t.Helper()
	buf := atomic.Wrap(make([]byte, capacity+TrailerLength))
	tx, err := NewTransmitter(buf, capacity)
	require.NoError(t, err)
	return tx, buf
}

func TestTransmitReceiveRoundTrip(t *testing.T) {
	tx, region := newTestChannel(t, 1024)
	rx, err := NewReceiver(region, 1024)
	require.NoError(t, err)

	tx.Transmit(3, []byte("ready"))

	var gotType int32
	var gotMsg []byte
	n := rx.Receive(func(typeID int32, msg []byte) {
		gotType = typeID
		gotMsg = append([]byte(nil), msg...)
	}, 10)

	require.Equal(t, 1, n)
	require.False(t, rx.Lapped())
	require.Equal(t, int32(3), gotType)
	require.Equal(t, []byte("ready"), gotMsg)
}

func TestMultipleConsumersReadIndependently(t *testing.T) {
	tx, region := newTestChannel(t, 1024)
	rx1, err := NewReceiver(region, 1024)
	require.NoError(t, err)
	rx2, err := NewReceiver(region, 1024)
	require.NoError(t, err)

	tx.Transmit(1, []byte("a"))
	tx.Transmit(2, []byte("b"))

	var types1, types2 []int32
	rx1.Receive(func(typeID int32, msg []byte) { types1 = append(types1, typeID) }, 10)
	rx2.Receive(func(typeID int32, msg []byte) { types2 = append(types2, typeID) }, 10)

	require.Equal(t, []int32{1, 2}, types1)
	require.Equal(t, []int32{1, 2}, types2)
}

func TestReceiverDetectsLapping(t *testing.T) {
	tx, region := newTestChannel(t, 256)
	rx, err := NewReceiver(region, 256)
	require.NoError(t, err)

	// Never drain rx while the transmitter writes enough records that the
	// producer wraps all the way around the capacity region more than
	// once, lapping the stale cursor.
	payload := make([]byte, 56) // recordLength 64, aligned to a full cache line
	for i := 0; i < 20; i++ {
		tx.Transmit(int32(i), payload)
	}

	n := rx.Receive(func(int32, []byte) {}, 100)
	require.Equal(t, 0, n)
	require.True(t, rx.Lapped())
}

func TestSustainedTrafficWrapsWithoutLoss(t *testing.T) {
	tx, region := newTestChannel(t, 512)
	rx, err := NewReceiver(region, 512)
	require.NoError(t, err)

	var types []int32
	for i := 0; i < 40; i++ {
		tx.Transmit(int32(i), make([]byte, 56))
		n := rx.Receive(func(typeID int32, msg []byte) { types = append(types, typeID) }, 10)
		require.Equal(t, 1, n)
		require.False(t, rx.Lapped())
	}

	for i := 0; i < 40; i++ {
		require.Equal(t, int32(i), types[i])
	}
}
