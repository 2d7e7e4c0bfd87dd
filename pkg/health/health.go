// Package health exposes the client's driver-liveness signal as a
// heptiolabs/healthcheck readiness probe, so a process embedding this
// client can serve /readyz alongside its own checks.
package health

import (
	"fmt"

	"github.com/heptiolabs/healthcheck"

	internalhealth "github.com/aeron-go-client/aeron/internal/health"
)

// ReadinessCheck adapts the driver status check into a healthcheck.Check.
func ReadinessCheck(conductor internalhealth.Conductor, driverPid int64) healthcheck.Check {
	return func() error {
		status, err := internalhealth.Check(conductor, driverPid)
		if err != nil {
			return err
		}
		if !status.Ready() {
			return fmt.Errorf("driver unready: dead=%v broadcast_loss=%v", status.DriverDead, status.BroadcastLoss)
		}
		return nil
	}
}

// NewHandler builds a healthcheck.Handler with the driver readiness check
// registered under the name "driver".
func NewHandler(conductor internalhealth.Conductor, driverPid int64) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddReadinessCheck("driver", ReadinessCheck(conductor, driverPid))
	return h
}
