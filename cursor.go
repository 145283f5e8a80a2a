package mman

import "github.com/sirupsen/logrus"

// FixedCursor is a read handle bound to exactly one Region for its entire
// life (spec.md §3, §4.5). It exposes byte/slice reads within the
// region's window and is released explicitly; a released Cursor is
// terminal (spec.md §4.7, "Cursor state machine: bound -> released").
type FixedCursor struct {
	mgr    *Manager
	finfo  *FileInfo
	ofs    uint64
	size   uint64
	region *Region
	flags  int
	closed bool
}

// Offset is the cursor's absolute start offset into its file.
func (c *FixedCursor) Offset() uint64 { return c.ofs }

// Size is the number of bytes observable through this cursor. It may be
// smaller than requested if the file, or the bound region, ends first.
func (c *FixedCursor) Size() uint64 { return c.size }

// Closed reports whether Release has already been called.
func (c *FixedCursor) Closed() bool { return c.closed }

// Region is the Region this cursor is bound to.
func (c *FixedCursor) Region() *Region { return c.region }

// IncludesOffset reports whether the given absolute file offset is
// within this cursor's observable [ofs, ofs+size) window.
func (c *FixedCursor) IncludesOffset(ofs uint64) bool {
	return c.ofs <= ofs && ofs < c.ofs+c.size
}

// RegionBytes returns a read-only view [offset-r.ofs, offset-r.ofs+size)
// into the bound Region's mapping (spec.md §4.5). The returned slice must
// not be retained past the cursor's release: a subsequent eviction may
// unmap the backing memory.
func (c *FixedCursor) RegionBytes() ([]byte, error) {
	if c.closed {
		return nil, newError(KindOutOfRange, "read on released cursor")
	}
	start := c.ofs - c.region.ofs
	end := start + c.size
	return c.region.bytes()[start:end], nil
}

// NextCursor is a convenience that yields a new Cursor, defaulting offset
// to self.ofs+self.size, re-invoking MakeCursor on the owning Manager
// (spec.md §4.5).
func (c *FixedCursor) NextCursor(offset, size int64, flags int) (*FixedCursor, error) {
	ofs := c.ofs + c.size
	if offset >= 0 {
		ofs = uint64(offset)
	}
	var sz uint64
	if size > 0 {
		sz = uint64(size)
	}
	if flags == 0 {
		flags = c.flags
	}
	return c.mgr.MakeCursor(c.finfo.ID, ofs, sz, flags)
}

// Release removes the cursor from the Manager's cursor_index. The bound
// Region is not released even if this was its last reference: it becomes
// unused and eligible for future LRU eviction (spec.md §4.5).
//
// A second Release on the same Cursor is a programming error, not a no-op
// (spec.md §5, "double-release of a Cursor is a programming error and must
// be reported" — unlike Manager.Close, which tolerates being called
// twice): it is reported via the owning Manager's logger and panics.
func (c *FixedCursor) Release() {
	if c.closed {
		c.mgr.logger.WithFields(logrus.Fields{
			"file": c.finfo.ID.String(), "ofs": c.ofs, "size": c.size,
		}).Panic("mman: double release of Cursor")
	}
	c.mgr.releaseCursor(c)
	c.closed = true
}
