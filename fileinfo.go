package mman

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// FileID identifies the file a Region, Cursor or SlidingBuffer refers to.
// It is either a filesystem path or an already-open, read-only file
// descriptor (spec.md §6, "id is either a filesystem path ... or an open
// read-only file descriptor"). FileID is comparable, so it can be used
// directly as a map key in path_index.
type FileID struct {
	path   string
	fd     uintptr
	isPath bool
}

// PathID builds a FileID from a filesystem path. The library may
// re-open(2) the path on every mapping it creates.
func PathID(path string) FileID {
	return FileID{path: path, isPath: true}
}

// DescriptorID builds a FileID from an already-open, read-only file
// descriptor. The caller retains ownership: it is responsible for closing
// f eventually, and must keep it open for as long as new Regions might
// need to be mapped from it. Descriptors are not necessarily unique
// across the lifetime of a process; prefer PathID unless you intend to
// keep f open for the Manager's lifetime.
func DescriptorID(f *os.File) FileID {
	return FileID{fd: f.Fd(), isPath: false}
}

func (id FileID) String() string {
	if id.isPath {
		return id.path
	}
	return fmt.Sprintf("fd:%d", id.fd)
}

func isNullFileID(id FileID) bool {
	return id == FileID{}
}

// FileInfo is the immutable record of a file's identity and its size at
// registration time (spec.md §3). It is created lazily on first reference
// to a file and cached per Manager until its last Region is evicted.
type FileInfo struct {
	ID   FileID
	Size uint64
}

// statSize stats (for a path) or fstats (for a descriptor) id to learn the
// file's current size. This is the only place mman touches the
// filesystem outside of region creation. Descriptors are fstat'd via a raw
// syscall rather than os.NewFile: wrapping a caller-owned fd in an *os.File
// arms a GC finalizer that closes it out from under the caller.
func statSize(id FileID) (uint64, error) {
	if id.isPath {
		fi, err := os.Stat(id.path)
		if err != nil {
			return 0, wrapError(KindResource, err, "stat %s", id)
		}
		if fi.Size() < 0 {
			return 0, newError(KindResource, "stat %s: negative size", id)
		}
		return uint64(fi.Size()), nil
	}

	var st unix.Stat_t
	if err := unix.Fstat(int(id.fd), &st); err != nil {
		return 0, wrapError(KindResource, err, "fstat %s", id)
	}
	if st.Size < 0 {
		return 0, newError(KindResource, "fstat %s: negative size", id)
	}
	return uint64(st.Size), nil
}
