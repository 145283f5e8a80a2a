package mman

// mapWindow is the transient geometry helper used while placing a new
// Region (spec.md §3, "Window geometry"; ported from smmap's `_MapWindow`
// in mman.py). It is never stored; only used to compute a candidate
// Region's offset and size during selection.
type mapWindow struct {
	ofs  uint64
	size uint64
}

func (w mapWindow) ofsEnd() uint64 { return w.ofs + w.size }

// alignDown aligns ofs down to the nearest multiple of granularity g.
func alignDown(ofs, g uint64) uint64 {
	if g == 0 {
		return ofs
	}
	return (ofs / g) * g
}

// align rounds w.ofs down to a multiple of g, absorbing the delta into
// w.size so that w.ofsEnd() is unchanged, per spec.md §4.2 step 5: "The
// end is not rounded up (this respects window_size and avoids paging in
// unneeded bytes)."
func (w *mapWindow) align(g uint64) {
	nofs := alignDown(w.ofs, g)
	w.size += w.ofs - nofs
	w.ofs = nofs
}

// extendLeftTo grows w to the left until it reaches left.ofsEnd(), without
// exceeding maxSize total, while keeping w's original [ofs, ofsEnd) fully
// covered (spec.md §4.2 step 3).
func (w *mapWindow) extendLeftTo(left mapWindow, maxSize uint64) {
	if maxSize == 0 {
		// window_size == 0 means "no cap" (spec.md §9(b)).
		w.size += w.ofs - left.ofsEnd()
		w.ofs = left.ofsEnd()
		return
	}
	rofs := w.ofs - left.ofsEnd()
	nsize := rofs + w.size
	if nsize > maxSize {
		rofs -= nsize - maxSize
	}
	w.ofs -= rofs
	w.size += rofs
}

// extendRightTo grows w to the right until it reaches right.ofs, without
// exceeding maxSize total (spec.md §4.2 step 4).
func (w *mapWindow) extendRightTo(right mapWindow, maxSize uint64) {
	grown := w.size + (right.ofs - w.ofsEnd())
	if maxSize == 0 {
		w.size = grown
		return
	}
	w.size = min(grown, maxSize)
}

func clamp(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
