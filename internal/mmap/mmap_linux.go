//go:build linux

package mmap

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Open maps path, creating and sizing it first when create is true. It
// mirrors the teacher's MapRegion but operates on an absolute filesystem
// path (the CnC file or a log file under $AERON_DIR) rather than a
// /dev/shm-relative shared-memory-object name.
func Open(path string, size int64, create bool) (*Region, error) {
	if size <= 0 {
		return nil, errUnsupportedSize
	}

	flags := unix.O_RDWR
	if create {
		flags |= unix.O_CREAT
	}

	fd, err := unix.Open(path, flags, 0600)
	if err != nil {
		return nil, fmt.Errorf("mmap: open %s: %w", path, err)
	}

	if create {
		if err := unix.Ftruncate(fd, size); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("mmap: ftruncate %s: %w", path, err)
		}
	}

	addr, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("mmap: mmap %s: %w", path, err)
	}

	return &Region{addr: addr, fd: fd}, nil
}

// Close unmaps the region and closes its file descriptor.
func (r *Region) Close() error {
	if r == nil || r.addr == nil {
		return nil
	}
	if err := unix.Munmap(r.addr); err != nil {
		return fmt.Errorf("mmap: munmap: %w", err)
	}
	r.addr = nil
	return unix.Close(r.fd)
}
