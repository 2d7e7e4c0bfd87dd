package health

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeConductor struct {
	dead   bool
	lapped bool
}

func (f fakeConductor) IsDriverDead() bool    { return f.dead }
func (f fakeConductor) IsBroadcastLoss() bool { return f.lapped }

func TestCheckReadyWhenNoStickyFlags(t *testing.T) {
	status, err := Check(fakeConductor{}, int64(os.Getpid()))
	require.NoError(t, err)
	require.True(t, status.Ready())
	require.True(t, status.ProcessAlive)
}

func TestCheckNotReadyWhenDriverDead(t *testing.T) {
	status, err := Check(fakeConductor{dead: true}, int64(os.Getpid()))
	require.NoError(t, err)
	require.False(t, status.Ready())
}

func TestCheckNotReadyWhenBroadcastLoss(t *testing.T) {
	status, err := Check(fakeConductor{lapped: true}, int64(os.Getpid()))
	require.NoError(t, err)
	require.False(t, status.Ready())
}
