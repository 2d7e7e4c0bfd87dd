// Package api defines the public contracts the client exposes for a
// host process to compose into its own readiness and observability
// wiring, independent of any concrete conductor implementation.
package api

import (
	"github.com/aeron-go-client/aeron/internal/health"
)

// DriverStatus summarizes the client's view of driver liveness.
type DriverStatus = health.DriverStatus

// HealthChecker narrows a Client (or a fake, in tests) to the
// liveness signal a readiness probe needs.
type HealthChecker interface {
	DriverStatus() (DriverStatus, error)
}
