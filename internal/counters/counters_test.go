package counters

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

func TestGetCounterValue(t *testing.T) {
	values := atomic.Wrap(make([]byte, CounterLength*4))
	metadata := atomic.Wrap(make([]byte, metadataRecordLength*4))
	values.PutInt64Ordered(CounterLength*2, 99)

	r := NewReader(values, metadata)
	v, err := r.GetCounterValue(2)
	require.NoError(t, err)
	require.Equal(t, int64(99), v)
}

func TestOutOfRange(t *testing.T) {
	values := atomic.Wrap(make([]byte, CounterLength*2))
	metadata := atomic.Wrap(make([]byte, metadataRecordLength*2))
	r := NewReader(values, metadata)

	_, err := r.GetCounterValue(5)
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Equal(t, int32(1), r.MaxCounterID())
}

func TestMetadataFields(t *testing.T) {
	values := atomic.Wrap(make([]byte, CounterLength*2))
	metadata := atomic.Wrap(make([]byte, metadataRecordLength*2))

	base := metadataRecordLength
	metadata.PutInt32Ordered(base+metadataStateOffset, RecordAllocated)
	metadata.PutInt32(base+metadataTypeIDOffset, 7)
	metadata.PutBytes(base+metadataKeyOffset, []byte("key-bytes"), 0, 9)
	label := []byte("client-heartbeat")
	metadata.PutInt32(base+metadataLabelLenOffset, int32(len(label)))
	metadata.PutBytes(base+metadataLabelOffset, label, 0, len(label))

	r := NewReader(values, metadata)

	state, err := r.State(1)
	require.NoError(t, err)
	require.Equal(t, RecordAllocated, state)

	typeID, err := r.TypeID(1)
	require.NoError(t, err)
	require.Equal(t, int32(7), typeID)

	key, err := r.Key(1)
	require.NoError(t, err)
	require.Equal(t, []byte("key-bytes"), key[:9])

	gotLabel, err := r.Label(1)
	require.NoError(t, err)
	require.Equal(t, "client-heartbeat", gotLabel)
}

func TestLabelEmptyWhenZeroLength(t *testing.T) {
	values := atomic.Wrap(make([]byte, CounterLength))
	metadata := atomic.Wrap(make([]byte, metadataRecordLength))
	r := NewReader(values, metadata)
	label, err := r.Label(0)
	require.NoError(t, err)
	require.Equal(t, "", label)
}
