package mman

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathID_StatSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 321), 0o644))

	id := PathID(path)
	size, err := statSize(id)
	require.NoError(t, err)
	require.EqualValues(t, 321, size)
	require.Equal(t, path, id.String())
}

func TestDescriptorID_StatSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 64), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	id := DescriptorID(f)
	size, err := statSize(id)
	require.NoError(t, err)
	require.EqualValues(t, 64, size)

	// The descriptor must still be usable afterwards: statSize must not
	// have closed it out from under the caller.
	_, err = f.Stat()
	require.NoError(t, err, "descriptor must remain usable after statSize")
}

func TestFileID_NullIsDistinctFromReal(t *testing.T) {
	require.True(t, isNullFileID(FileID{}), "zero-value FileID should be null")
	require.False(t, isNullFileID(PathID("x")), "a real path id should not be null")
}
