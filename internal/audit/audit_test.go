package audit

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentOrdersOldestFirstBeforeWrap(t *testing.T) {
	tr := NewTrail(3)
	tr.Record(Entry{Kind: KindDriverError, Message: "a"})
	tr.Record(Entry{Kind: KindDriverError, Message: "b"})

	recent := tr.Recent()
	require.Len(t, recent, 2)
	require.Equal(t, "a", recent[0].Message)
	require.Equal(t, "b", recent[1].Message)
}

func TestRecentWrapsAndDropsOldest(t *testing.T) {
	tr := NewTrail(3)
	tr.Record(Entry{Message: "a"})
	tr.Record(Entry{Message: "b"})
	tr.Record(Entry{Message: "c"})
	tr.Record(Entry{Message: "d"})

	recent := tr.Recent()
	require.Len(t, recent, 3)
	require.Equal(t, []string{"b", "c", "d"}, []string{recent[0].Message, recent[1].Message, recent[2].Message})
}
