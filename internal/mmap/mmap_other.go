//go:build !linux

package mmap

import "fmt"

// Open is unimplemented outside Linux. The driver and its CnC/log file
// layout are POSIX shared-memory conventions; porting this mapping call is
// future work, not something spec.md asks this repository to design.
func Open(path string, size int64, create bool) (*Region, error) {
	return nil, fmt.Errorf("mmap: unsupported on this platform")
}

// Close is a no-op companion to the unimplemented Open.
func (r *Region) Close() error {
	return nil
}
