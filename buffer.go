package mman

// SlidingBuffer is a byte-array-like façade over [offset, offset+size) of
// a file (spec.md §3, §4.6). It owns at most one transient Cursor at a
// time and re-binds it as indexing crosses region boundaries. Unlike
// reads taken directly off a FixedCursor, everything SlidingBuffer returns
// is an independent, owned copy: no reference into any mapping survives
// the call, because a subsequent re-binding may evict the backing Region.
type SlidingBuffer struct {
	mgr    *Manager
	id     FileID
	ofs    uint64
	size   uint64
	flags  int
	cursor *FixedCursor
}

// Len is the buffer's logical size: the size given at construction,
// clamped to the bytes the file holds past the buffer's offset (a size of
// 0 means "up to the end of the file").
func (b *SlidingBuffer) Len() uint64 { return b.size }

// Closed reports whether the buffer currently has no Cursor bound: true
// after Release (until a later read binds a new one) and for a zero-length
// buffer.
func (b *SlidingBuffer) Closed() bool { return b.cursor == nil }

// Cursor returns the buffer's current transient Cursor, or nil if none is
// bound (for a zero-length buffer, or after Release).
func (b *SlidingBuffer) Cursor() *FixedCursor { return b.cursor }

func (b *SlidingBuffer) normalizeIndex(i int64) (uint64, error) {
	if i < 0 {
		i += int64(b.size)
	}
	if i < 0 || uint64(i) >= b.size {
		return 0, newError(KindOutOfRange, "index %d out of range [0, %d)", i, b.size)
	}
	return uint64(i), nil
}

// ReadByte returns the single byte at position i relative to the
// buffer's offset, re-binding the Cursor if crossing a region boundary
// (spec.md §4.6, "Indexed read").
func (b *SlidingBuffer) ReadByte(i int64) (byte, error) {
	idx, err := b.normalizeIndex(i)
	if err != nil {
		return 0, err
	}
	a := b.ofs + idx

	if b.cursor == nil || !b.cursor.Region().IncludesOffset(a) {
		if err := b.rebind(a, 1); err != nil {
			return 0, err
		}
	}

	region := b.cursor.Region()
	data, err := region.bytesInRange(a, a+1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// Slice returns an owned copy of the bytes in [i, j) relative to the
// buffer's offset, normalizing negative indices and clamping j to Len()
// (spec.md §4.6, "Sliced read").
func (b *SlidingBuffer) Slice(i, j int64) ([]byte, error) {
	if i < 0 {
		i += int64(b.size)
	}
	if i < 0 {
		i = 0
	}
	if j < 0 {
		j += int64(b.size)
	}
	if j > int64(b.size) {
		j = int64(b.size)
	}
	if j < i {
		j = i
	}
	if i == j {
		return []byte{}, nil
	}

	a := b.ofs + uint64(i)
	end := b.ofs + uint64(j)

	// Fast path: current cursor's region spans the whole request.
	if b.cursor != nil {
		region := b.cursor.Region()
		if region.IncludesOffset(a) && end < region.OfsEnd() {
			data, err := region.bytesInRange(a, end)
			if err != nil {
				return nil, err
			}
			out := make([]byte, len(data))
			copy(out, data)
			return out, nil
		}
	}

	// Slow path: walk regions, copying out each contiguous chunk.
	out := make([]byte, 0, end-a)
	remaining := end - a
	cur := a
	for remaining > 0 {
		if err := b.rebind(cur, remaining); err != nil {
			return nil, err
		}
		region := b.cursor.Region()
		chunk := min(remaining, region.OfsEnd()-cur)
		data, err := region.bytesInRange(cur, cur+chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
		cur += chunk
		remaining -= chunk
	}
	return out, nil
}

// rebind releases the current cursor (if any) and binds a new one via the
// owning Manager, starting at at and requesting minSize bytes. The new
// cursor's region always includes at, but may end before at+minSize.
func (b *SlidingBuffer) rebind(at, minSize uint64) error {
	if b.cursor != nil {
		b.cursor.Release()
		b.cursor = nil
	}
	c, err := b.mgr.MakeCursor(b.id, at, minSize, b.flags)
	if err != nil {
		return err
	}
	b.cursor = c
	return nil
}

// Release destroys the buffer's transient Cursor, if any. It is
// idempotent.
func (b *SlidingBuffer) Release() {
	if b.cursor != nil {
		b.cursor.Release()
		b.cursor = nil
	}
}
