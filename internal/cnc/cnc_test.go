package cnc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

func buildRegion(t *testing.T, toDriverLen, toClientsLen, counterMetaLen, counterValuesLen, errorLogLen int32) *atomic.Buffer {
	t.Helper()
	total := MetaDataLength + int(toDriverLen) + int(toClientsLen) + int(counterMetaLen) + int(counterValuesLen) + int(errorLogLen)
	region := atomic.Wrap(make([]byte, total))

	region.PutInt32(toDriverBufferLengthOffset, toDriverLen)
	region.PutInt32(toClientsBufferLengthOffset, toClientsLen)
	region.PutInt32(counterMetadataBufferLengthOffset, counterMetaLen)
	region.PutInt32(counterValuesBufferLengthOffset, counterValuesLen)
	region.PutInt32(errorLogBufferLengthOffset, errorLogLen)
	region.PutInt64(clientLivenessTimeoutNsOffset, 5_000_000_000)
	region.PutInt64(startTimestampMsOffset, 1000)
	region.PutInt64(pidOffset, 4242)
	region.PutInt32Ordered(cncVersionOffset, Version)

	return region
}

func TestAwaitVersionNotYetPublished(t *testing.T) {
	region := atomic.Wrap(make([]byte, MetaDataLength))
	v, err := AwaitVersion(region)
	require.NoError(t, err)
	require.Equal(t, int32(0), v)
}

func TestAwaitVersionMismatch(t *testing.T) {
	region := atomic.Wrap(make([]byte, MetaDataLength))
	region.PutInt32Ordered(cncVersionOffset, Version+1)
	_, err := AwaitVersion(region)
	require.ErrorIs(t, err, ErrVersionMismatch)
}

func TestParseSlicesRegions(t *testing.T) {
	region := buildRegion(t, 128, 256, 64, 32, 16)

	d, err := Parse(region)
	require.NoError(t, err)

	require.Equal(t, 128, d.ToDriverBuffer.Capacity())
	require.Equal(t, 256, d.ToClientsBuffer.Capacity())
	require.Equal(t, 64, d.CounterMetadata.Capacity())
	require.Equal(t, 32, d.CounterValues.Capacity())
	require.Equal(t, 16, d.ErrorLog.Capacity())
	require.Equal(t, int64(4242), d.Metadata.Pid)
	require.Equal(t, int64(5_000_000_000), d.Metadata.ClientLivenessTimeoutNs)
}

func TestParseRejectsTruncatedRegion(t *testing.T) {
	region := buildRegion(t, 128, 0, 0, 0, 0)
	truncated := region.Slice(0, MetaDataLength+64)
	_, err := Parse(truncated)
	require.Error(t, err)
}
