package adapter

import (
	"net/http"

	"github.com/aeron-go-client/aeron/internal/health"
	pkghealth "github.com/aeron-go-client/aeron/pkg/health"
)

// HealthHandler serves the driver readiness check over HTTP, for
// embedding into a host process's existing /readyz mux.
type HealthHandler struct {
	handler http.Handler
}

// NewHealthHandler builds a HealthHandler checking conductor's driver
// liveness flags plus driverPid's process existence.
func NewHealthHandler(conductor health.Conductor, driverPid int64) *HealthHandler {
	return &HealthHandler{handler: pkghealth.NewHandler(conductor, driverPid)}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}
