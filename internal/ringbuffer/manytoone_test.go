package ringbuffer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

func newTestRing(t *testing.T, capacity int32) *ManyToOneRingBuffer {
	t.Helper()
	buf := atomic.Wrap(make([]byte, capacity+TrailerLength))
	ring, err := Wrap(buf, capacity)
	require.NoError(t, err)
	return ring
}

func TestWriteReadRoundTrip(t *testing.T) {
	ring := newTestRing(t, 1024)

	require.NoError(t, ring.Write(7, []byte("hello")))

	var gotType int32
	var gotMsg []byte
	n := ring.Read(func(typeID int32, msg []byte) {
		gotType = typeID
		gotMsg = append([]byte(nil), msg...)
	}, 10)

	require.Equal(t, 1, n)
	require.Equal(t, int32(7), gotType)
	require.Equal(t, []byte("hello"), gotMsg)
}

func TestReadReturnsNothingWhenEmpty(t *testing.T) {
	ring := newTestRing(t, 256)
	n := ring.Read(func(int32, []byte) {}, 10)
	require.Equal(t, 0, n)
}

func TestInsufficientSpace(t *testing.T) {
	ring := newTestRing(t, 64)
	big := make([]byte, 128)
	require.ErrorIs(t, ring.Write(1, big), ErrInsufficientSpace)
}

func TestWriteWrapsWithPadding(t *testing.T) {
	ring := newTestRing(t, 128)

	// Fill most of the buffer, drain it, then write a record that would
	// straddle the end of the capacity region and must be padded around.
	require.NoError(t, ring.Write(1, make([]byte, 64)))
	ring.Read(func(int32, []byte) {}, 10)

	require.NoError(t, ring.Write(2, make([]byte, 64)))

	var types []int32
	ring.Read(func(typeID int32, msg []byte) {
		types = append(types, typeID)
	}, 10)
	require.Equal(t, []int32{2}, types)
}

// TestManyProducersOneConsumer is the P4 property: with many concurrent
// writers and a single reader draining concurrently, the reader receives
// exactly perProducer records from every producer.
func TestManyProducersOneConsumer(t *testing.T) {
	ring := newTestRing(t, 1<<16)

	const producers = 8
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int32) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for ring.Write(id, []byte{byte(i)}) != nil {
					// Retry on transient insufficient space while the
					// consumer drains concurrently.
				}
			}
		}(int32(p))
	}

	received := make(map[int32]int)
	var mu sync.Mutex
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
			}
			ring.Read(func(typeID int32, msg []byte) {
				mu.Lock()
				received[typeID]++
				mu.Unlock()
			}, 64)
		}
	}()

	wg.Wait()
	// Stop the background reader before draining, so only one reader
	// touches the ring at a time.
	close(done)
	<-stopped
	// Drain whatever remains after producers finish.
	for i := 0; i < 100; i++ {
		ring.Read(func(typeID int32, msg []byte) {
			mu.Lock()
			received[typeID]++
			mu.Unlock()
		}, 1024)
	}

	for p := 0; p < producers; p++ {
		require.Equal(t, perProducer, received[int32(p)], "producer %d", p)
	}
}

func TestNextCorrelationIDIsMonotoneAndUnique(t *testing.T) {
	ring := newTestRing(t, 256)

	seen := make(map[int64]bool)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := ring.NextCorrelationID()
			mu.Lock()
			require.False(t, seen[id])
			seen[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, seen, 50)
}

func TestConsumerHeartbeat(t *testing.T) {
	ring := newTestRing(t, 256)
	ring.ConsumerHeartbeatTime(42)
	require.Equal(t, int64(42), ring.ConsumerHeartbeatTimeValue())
}
