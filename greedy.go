package mman

// obtainRegionGreedy implements spec.md §4.3: Greedy maps each file in a
// single Region covering the whole file, or fails if window_size is
// configured non-zero and the file exceeds it.
func (m *Manager) obtainRegionGreedy(finfo *FileInfo, offset, size uint64, flags int) (*Region, error) {
	return m.obtainRegionGreedyRetry(finfo, offset, flags, false)
}

func (m *Manager) obtainRegionGreedyRetry(finfo *FileInfo, offset uint64, flags int, isRetry bool) (*Region, error) {
	if m.windowSize > 0 && finfo.Size > m.windowSize {
		return nil, newError(KindUnsupported, "file %s of size %d exceeds greedy window_size %d", finfo.ID, finfo.Size, m.windowSize)
	}

	if regions := m.fileRegions[finfo.ID]; len(regions) > 0 {
		return regions[0], nil
	}

	if m.mappedMemorySize+finfo.Size > m.maxMemorySize || uint64(m.NumOpenRegions()) >= m.maxRegionsCount {
		m.evict(finfo.Size)
	}

	r, err := createRegion(finfo, 0, finfo.Size, flags)
	if err != nil {
		if isRetry {
			return nil, err
		}
		m.evict(0)
		return m.obtainRegionGreedyRetry(finfo, offset, flags, true)
	}

	if err := m.registerRegion(finfo, r, 0); err != nil {
		return nil, err
	}
	return r, nil
}
