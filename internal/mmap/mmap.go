// Package mmap opens and maps the CnC and log files the driver creates.
// Mapping itself is a utility the conductor invokes, not a component it
// designs (see spec.md §1); the Linux implementation is grounded verbatim
// on the teacher's internal/shm/platform_linux.go, generalized from a
// /dev/shm-relative name into an absolute path since CnC/log files live
// under the Aeron directory, not shared-memory-object namespace.
package mmap

import (
	"fmt"

	"github.com/aeron-go-client/aeron/internal/atomic"
)

// Region is an open memory-mapped file. Close unmaps and closes it.
type Region struct {
	addr []byte
	fd   int
}

// Buffer wraps the mapped region as an atomic.Buffer for the callers in
// internal/logbuffer, internal/ringbuffer, internal/broadcast, and
// internal/counters.
func (r *Region) Buffer() *atomic.Buffer {
	return atomic.Wrap(r.addr)
}

// Bytes returns the raw mapped region.
func (r *Region) Bytes() []byte {
	return r.addr
}

var errUnsupportedSize = fmt.Errorf("mmap: size must be positive")
