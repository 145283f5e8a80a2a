package mman

import "github.com/sirupsen/logrus"

// evict walks region_index in least-recently-used order and, for each
// region not currently referenced by any Cursor, unmaps it (spec.md
// §4.4). If need is 0, every unreferenced region is freed unconditionally.
// Otherwise eviction stops as soon as both mapped_memory_size+need is
// within max_memory_size and num_open_regions is within
// max_regions_count — the conjunctive, stricter reading of the two
// competing predicates in the source (spec.md §9, Open Question (a)).
// evict never fails: it does what it can and returns the count freed.
func (m *Manager) evict(need uint64) int {
	candidates := m.regionIndex.Keys() // oldest (least-recently-used) first

	freed := 0
	for _, r := range candidates {
		if need != 0 && m.withinBudget(need) {
			break
		}
		if r.Referenced() {
			continue // used region: never force-closed by LRU pressure
		}
		if err := m.removeRegion(r); err != nil {
			m.logger.WithError(err).WithField("region", r.String()).Warn("mman: eviction failed to unmap region")
			continue
		}
		m.logger.WithFields(logrus.Fields{
			"file": r.finfo.ID.String(), "ofs": r.ofs, "size": r.size,
		}).Debug("mman: region evicted")
		freed++
	}

	if need != 0 && !m.withinBudget(need) {
		m.logger.WithFields(logrus.Fields{
			"need": need, "mapped": m.mappedMemorySize, "max_memory": m.maxMemorySize,
			"open_regions": m.NumOpenRegions(), "max_regions": m.maxRegionsCount,
		}).Warn("mman: eviction could not reach soft caps; all remaining regions are in use")
	}

	return freed
}

func (m *Manager) withinBudget(need uint64) bool {
	return m.mappedMemorySize+need <= m.maxMemorySize && uint64(m.NumOpenRegions()) < m.maxRegionsCount
}
