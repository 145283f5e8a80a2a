package mman

// obtainRegionTiling implements spec.md §4.2: binary-search the existing,
// offset-sorted Regions of finfo for one that already covers offset; if
// none does, compute a new window that maximally covers the request
// without exceeding the configured window_size budget or overlapping
// neighboring Regions, then map it.
func (m *Manager) obtainRegionTiling(finfo *FileInfo, offset, size uint64, flags int) (*Region, error) {
	return m.obtainRegionTilingRetry(finfo, offset, size, flags, false)
}

func (m *Manager) obtainRegionTilingRetry(finfo *FileInfo, offset, size uint64, flags int, isRetry bool) (*Region, error) {
	regions := m.fileRegions[finfo.ID]

	// Step 1: search.
	idx := sortedInsertPos(regions, offset)
	if idx > 0 && regions[idx-1].IncludesOffset(offset) {
		return regions[idx-1], nil
	}
	// idx is now the insertion position: the first region (if any) whose
	// ofs is strictly greater than offset.

	windowSize := m.windowSize

	// Step 2: place.
	capSize := finfo.Size - offset
	if windowSize > 0 {
		capSize = min(capSize, windowSize)
	}
	mid := mapWindow{ofs: offset, size: clamp(size, 1, capSize)}

	left := mapWindow{ofs: 0, size: 0}
	if idx > 0 {
		left = mapWindow{ofs: regions[idx-1].ofs, size: regions[idx-1].size}
	}
	right := mapWindow{ofs: finfo.Size, size: 0}
	if idx < len(regions) {
		right = mapWindow{ofs: regions[idx].ofs, size: regions[idx].size}
	}

	// Step 3: extend left.
	mid.extendLeftTo(left, windowSize)
	// Step 4: extend right.
	mid.extendRightTo(right, windowSize)
	// Step 5: align (end not rounded up).
	mid.align(allocationGranularity())

	// Step 6: clamp to right.
	if mid.ofsEnd() > right.ofs {
		mid.size = right.ofs - mid.ofs
	}

	// Step 7: budget check.
	if m.mappedMemorySize+mid.size > m.maxMemorySize || uint64(m.NumOpenRegions()) >= m.maxRegionsCount {
		m.evict(mid.size)
	}

	// Step 8: create, with one evict-and-retry on resource failure.
	r, err := createRegion(finfo, mid.ofs, mid.size, flags)
	if err != nil {
		if isRetry {
			return nil, err
		}
		m.evict(0)
		return m.obtainRegionTilingRetry(finfo, offset, size, flags, true)
	}

	// Step 9: register at the recomputed insertion position (eviction
	// above may have changed finfo's region list).
	regions = m.fileRegions[finfo.ID]
	insertAt := sortedInsertPos(regions, offset)
	if err := m.registerRegion(finfo, r, insertAt); err != nil {
		return nil, err
	}

	return r, nil
}
