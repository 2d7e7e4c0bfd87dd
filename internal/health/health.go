// Package health evaluates whether the driver this client is attached to
// is still alive, combining the conductor's sticky heartbeat-timeout flags
// with a secondary corroborating signal against the driver's own process
// id, per SPEC_FULL.md's metrics & health expansion.
package health

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// DriverStatus summarizes the client's view of the driver it is attached
// to.
type DriverStatus struct {
	DriverDead    bool
	BroadcastLoss bool
	ProcessAlive  bool
}

// Ready reports the overall readiness verdict. ProcessAlive is reported
// for diagnostics but never overrides the primary heartbeat check: a
// process that still exists but has stopped servicing the CnC heartbeat is
// still DriverDead.
func (s DriverStatus) Ready() bool {
	return !s.DriverDead && !s.BroadcastLoss
}

// Conductor is the subset of *internal/conductor.Conductor this package
// depends on. Expressed as an interface so this package does not need to
// import conductor (which in turn depends on broadcast/ringbuffer), keeping
// the health check's dependency on the conductor one-directional.
type Conductor interface {
	IsDriverDead() bool
	IsBroadcastLoss() bool
}

// Check evaluates conductor's sticky flags and whether driverPid is still
// a running process.
func Check(conductor Conductor, driverPid int64) (DriverStatus, error) {
	status := DriverStatus{
		DriverDead:    conductor.IsDriverDead(),
		BroadcastLoss: conductor.IsBroadcastLoss(),
	}

	alive, err := process.PidExists(int32(driverPid))
	if err != nil {
		return status, fmt.Errorf("health: checking driver pid %d: %w", driverPid, err)
	}
	status.ProcessAlive = alive
	return status, nil
}
