package logbuffer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

func TestWrapSlicesThreePartitionsAndMetadata(t *testing.T) {
	termLength := int32(TermMinLength)
	region := atomic.Wrap(make([]byte, int(termLength)*PartitionCount+MetaDataLength))

	lb, err := Wrap(region, termLength)
	require.NoError(t, err)

	for i := 0; i < PartitionCount; i++ {
		require.Equal(t, int(termLength), lb.Partitions[i].Capacity())
	}
	require.Equal(t, MetaDataLength, lb.Metadata.Capacity())

	PutActivePartitionIndex(lb.Metadata, 2)
	require.Same(t, lb.Partitions[2], lb.ActivePartition())
}

func TestWrapRejectsMismatchedRegionLength(t *testing.T) {
	region := atomic.Wrap(make([]byte, 10))
	_, err := Wrap(region, TermMinLength)
	require.Error(t, err)
}
