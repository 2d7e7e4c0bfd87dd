//go:build linux

package mmap

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreateWriteReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cnc.dat")

	region, err := Open(path, 4096, true)
	require.NoError(t, err)

	region.Buffer().PutInt32(0, 42)
	require.NoError(t, region.Close())

	reopened, err := Open(path, 4096, false)
	require.NoError(t, err)
	require.Equal(t, int32(42), reopened.Buffer().GetInt32(0))
	require.NoError(t, reopened.Close())
}

func TestOpenRejectsNonPositiveSize(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x"), 0, true)
	require.Error(t, err)
}
