//go:build unix

package mman

import (
	"os"

	"golang.org/x/sys/unix"
)

// osMapping is one live OS memory mapping: the read-only view of bytes
// returned by mmap(2), plus enough state to munmap(2) it again. Replacing
// the teacher's raw syscall.Syscall6(syscall.SYS_MMAP, ...) (ring.go,
// syscall.go in pault.ag/go/go-diskring), mman uses golang.org/x/sys/unix,
// the same dependency Giulio2002-gdbx's mmap_unix.go (other_examples)
// reaches for, and one already present in this pack's dependency graph.
type osMapping struct {
	data []byte
}

// allocationGranularity returns G, the platform allocation granularity
// that mapping offsets must be aligned to (spec.md's glossary).
func allocationGranularity() uint64 {
	return uint64(unix.Getpagesize())
}

// openForMapping opens the file identified by id (unless it is already a
// descriptor) read-only, with flags OR-ed onto the open(2) call as
// spec.md §6 requires ("flags are OR-ed onto open, not onto mmap"). The
// returned fd must be closed by the caller when it is a path-backed
// descriptor; when id is descriptor-backed, the original is never closed
// here (the caller retains ownership per spec.md §6).
func openForMapping(id FileID, flags int) (fd int, shouldClose bool, err error) {
	if !id.isPath {
		return int(id.fd), false, nil
	}
	f, err := os.OpenFile(id.path, os.O_RDONLY|flags, 0)
	if err != nil {
		return 0, false, wrapError(KindResource, err, "open %s", id)
	}
	return int(f.Fd()), true, nil
}

// mapRegion creates a read-only mapping of [ofs, ofs+size) of the file
// identified by id. ofs must already be aligned to allocationGranularity().
func mapRegion(id FileID, ofs, size uint64, flags int) (*osMapping, error) {
	fd, shouldClose, err := openForMapping(id, flags)
	if err != nil {
		return nil, err
	}
	if shouldClose {
		defer unix.Close(fd)
	}

	data, err := unix.Mmap(fd, int64(ofs), int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, wrapError(KindResource, err, "mmap %s at %d/%d", id, ofs, size)
	}
	return &osMapping{data: data}, nil
}

// unmap releases the OS mapping. It is safe to call at most once.
func (m *osMapping) unmap() error {
	if m == nil || m.data == nil {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return wrapError(KindResource, err, "munmap")
	}
	m.data = nil
	return nil
}

func (m *osMapping) bytes() []byte { return m.data }
