package mman

import "fmt"

// Region is an opaque handle over one OS mapping: its file, its aligned
// start offset, and its actual length (spec.md §3). A Region has no
// lifetime of its own; it is owned entirely by the Manager and is only
// ever constructed by region selection (tiling.go, greedy.go).
type Region struct {
	finfo   *FileInfo
	ofs     uint64
	size    uint64
	mapping *osMapping

	// refs is a reference count of live Cursors bound to this Region,
	// maintained by the Manager on bind/release. It makes the
	// "unreferenced" check eviction relies on O(1) instead of scanning
	// cursor_index, per spec.md §9's suggested arena/refcount design.
	refs int
}

// Referenced reports whether any live Cursor is currently bound to this
// Region.
func (r *Region) Referenced() bool { return r.refs > 0 }

// Ofs is the region's aligned start offset into its file.
func (r *Region) Ofs() uint64 { return r.ofs }

// Size is the region's actual mapped length, which may be less than
// requested if the file ends first.
func (r *Region) Size() uint64 { return r.size }

// OfsEnd is Ofs()+Size(), one past the last mapped byte.
func (r *Region) OfsEnd() uint64 { return r.ofs + r.size }

// IncludesOffset reports whether the given absolute file offset falls
// inside this region's mapped window.
func (r *Region) IncludesOffset(ofs uint64) bool {
	return r.ofs <= ofs && ofs < r.OfsEnd()
}

// FileID is the identity of the file this region maps.
func (r *Region) FileID() FileID { return r.finfo.ID }

func (r *Region) String() string {
	return fmt.Sprintf("Region<%s@%d,%d>", r.finfo.ID, r.ofs, r.size)
}

// bytes returns the raw mapped bytes. Callers within the package must
// treat the result as read-only and must not retain it past the point the
// owning Region might be evicted; SlidingBuffer always copies out of this
// before returning to callers (spec.md §4.6).
func (r *Region) bytes() []byte {
	return r.mapping.bytes()
}

// bytesInRange returns the mapped bytes covering the absolute offsets
// [start, end). Both must fall within [r.Ofs(), r.OfsEnd()].
func (r *Region) bytesInRange(start, end uint64) ([]byte, error) {
	if start < r.ofs || end > r.OfsEnd() || end < start {
		return nil, newError(KindOutOfRange, "range [%d, %d) outside region %s", start, end, r)
	}
	return r.mapping.bytes()[start-r.ofs : end-r.ofs], nil
}

// createRegion opens and memory-maps [ofs, ofs+size) of finfo's file,
// clamping size to the file's actual remaining bytes (spec.md §4.2 step 8,
// §3 "size may be less than requested if the file ends first").
func createRegion(finfo *FileInfo, ofs, size uint64, flags int) (*Region, error) {
	if ofs > finfo.Size {
		return nil, newError(KindOutOfRange, "region offset %d beyond file size %d", ofs, finfo.Size)
	}
	actual := min(size, finfo.Size-ofs)
	if actual == 0 {
		return nil, newError(KindResource, "region of zero size requested for %s at %d", finfo.ID, ofs)
	}
	mapping, err := mapRegion(finfo.ID, ofs, actual, flags)
	if err != nil {
		return nil, err
	}
	return &Region{finfo: finfo, ofs: ofs, size: uint64(len(mapping.bytes())), mapping: mapping}, nil
}
