package mman

import (
	"math"
	"math/bits"
	"sort"

	"github.com/sirupsen/logrus"
)

// Flavor selects how a Manager places Regions for a file: Tiling partitions
// each file into many disjoint windowed Regions, Greedy maps each file in
// a single Region covering the whole file (spec.md §2).
type Flavor int

const (
	// Tiling partitions each file into many non-overlapping windowed
	// Regions, bounded by Options.WindowSize.
	Tiling Flavor = iota
	// Greedy maps each file in a single Region covering the whole file,
	// or fails if the file exceeds a configured, non-zero WindowSize.
	Greedy
)

const mebibyte = 1024 * 1024

const is64Bit = bits.UintSize == 64

// Options configures a Manager, following the teacher's (pault.ag/go/go-
// diskring) Options-struct construction idiom rather than functional
// options.
type Options struct {
	// WindowSize caps the size of any single Region a Tiling manager
	// creates (Greedy uses it only as an upper bound on mappable file
	// size). Negative picks a platform default (64MiB on 32-bit, 1GiB on
	// 64-bit). Zero means no cap.
	WindowSize int64

	// MaxMemorySize is the soft cap, in bytes, on total mapped memory.
	// Zero picks a platform default (1GiB on 32-bit, 8GiB on 64-bit).
	MaxMemorySize uint64

	// MaxRegionsCount is the soft cap on the number of simultaneously
	// open Regions. Zero means no cap.
	MaxRegionsCount uint64

	// Logger receives diagnostic Debug/Warn entries for evictions, close
	// failures, and suppressed conditions during unwind. Defaults to
	// logrus.StandardLogger().
	Logger *logrus.Logger
}

func (o Options) resolve() (windowSize, maxMemorySize, maxRegionsCount uint64, logger *logrus.Logger) {
	switch {
	case o.WindowSize < 0:
		coeff := uint64(64)
		if is64Bit {
			coeff = 1024
		}
		windowSize = coeff * mebibyte
	default:
		windowSize = uint64(o.WindowSize)
	}

	if o.MaxMemorySize == 0 {
		coeff := uint64(1024)
		if is64Bit {
			coeff = 8192
		}
		maxMemorySize = coeff * mebibyte
	} else {
		maxMemorySize = o.MaxMemorySize
	}

	if o.MaxRegionsCount == 0 {
		maxRegionsCount = math.MaxUint64
	} else {
		maxRegionsCount = o.MaxRegionsCount
	}

	logger = o.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return
}

// Manager owns all FileInfos, Regions, and Cursors; it implements region
// selection, creation, eviction, and the LRU policy (spec.md §2, §4.7).
type Manager struct {
	flavor Flavor

	windowSize      uint64
	maxMemorySize   uint64
	maxRegionsCount uint64
	logger          *logrus.Logger

	pathIndex   *relation[FileID, *FileInfo]
	regionIndex *relation[*Region, *osMapping]
	cursorIndex *relation[*FixedCursor, *Region]

	// fileRegions holds, per file, the Regions covering it, kept sorted
	// by Ofs. Tiling relies on this ordering for bisection and insertion
	// (mirrors smmap's MapRegionList); Greedy holds at most one entry.
	fileRegions map[FileID][]*Region

	mappedMemorySize uint64
	closed           bool
}

func newManager(flavor Flavor, opts Options) *Manager {
	windowSize, maxMemorySize, maxRegionsCount, logger := opts.resolve()
	return &Manager{
		flavor:          flavor,
		windowSize:      windowSize,
		maxMemorySize:   maxMemorySize,
		maxRegionsCount: maxRegionsCount,
		logger:          logger,
		pathIndex:       newRelation[FileID, *FileInfo](relationConfig{oneToOne: true}, isNullFileID, func(f *FileInfo) bool { return f == nil }),
		regionIndex:     newRelation[*Region, *osMapping](relationConfig{oneToOne: true}, func(r *Region) bool { return r == nil }, func(m *osMapping) bool { return m == nil }),
		cursorIndex:     newRelation[*FixedCursor, *Region](relationConfig{}, func(c *FixedCursor) bool { return c == nil }, func(r *Region) bool { return r == nil }),
		fileRegions:     make(map[FileID][]*Region),
	}
}

// NewTilingManager constructs a Manager that partitions each file into
// many disjoint windowed Regions.
func NewTilingManager(opts Options) *Manager { return newManager(Tiling, opts) }

// NewGreedyManager constructs a Manager that maps each file in a single
// Region covering the whole file.
func NewGreedyManager(opts Options) *Manager { return newManager(Greedy, opts) }

// WindowSize is the configured per-region size cap (0 = no cap).
func (m *Manager) WindowSize() uint64 { return m.windowSize }

// MaxMemorySize is the configured soft cap on total mapped bytes.
func (m *Manager) MaxMemorySize() uint64 { return m.maxMemorySize }

// MappedMemorySize is the amount of bytes currently mapped in total.
func (m *Manager) MappedMemorySize() uint64 { return m.mappedMemorySize }

// NumOpenRegions is the number of Regions currently mapped.
func (m *Manager) NumOpenRegions() int { return m.regionIndex.Len() }

// NumUsedRegions is the number of Regions with at least one bound Cursor.
func (m *Manager) NumUsedRegions() int {
	used := 0
	m.regionIndex.Do(func(r *Region, _ *osMapping) bool {
		if r.Referenced() {
			used++
		}
		return true
	})
	return used
}

// NumOpenFiles is the number of distinct files with at least one open
// Region.
func (m *Manager) NumOpenFiles() int {
	n := 0
	for _, regions := range m.fileRegions {
		if len(regions) > 0 {
			n++
		}
	}
	return n
}

// NumOpenCursors is the number of live, unreleased Cursors.
func (m *Manager) NumOpenCursors() int { return m.cursorIndex.Len() }

// Closed reports whether Close has already succeeded on this Manager.
func (m *Manager) Closed() bool { return m.closed }

func (m *Manager) getOrCreateFileInfo(id FileID) (*FileInfo, error) {
	if finfo, ok := m.pathIndex.Get(id); ok {
		return finfo, nil
	}
	size, err := statSize(id)
	if err != nil {
		return nil, err
	}
	finfo := &FileInfo{ID: id, Size: size}
	if err := m.pathIndex.Put(id, finfo); err != nil {
		return nil, err
	}
	return finfo, nil
}

// obtainRegion resolves or creates a Region covering offset, dispatching
// to the flavor-specific placement algorithm (spec.md §4.2, §4.3).
func (m *Manager) obtainRegion(finfo *FileInfo, offset, size uint64, flags int) (*Region, error) {
	if offset >= finfo.Size {
		return nil, newError(KindOutOfRange, "offset %d >= file size %d for %s", offset, finfo.Size, finfo.ID)
	}
	switch m.flavor {
	case Greedy:
		return m.obtainRegionGreedy(finfo, offset, size, flags)
	default:
		return m.obtainRegionTiling(finfo, offset, size, flags)
	}
}

// registerRegion records a newly created region in all indexes and
// updates memory accounting. insertAt is the position in fileRegions[id]
// to keep the per-file slice sorted by Ofs.
func (m *Manager) registerRegion(finfo *FileInfo, r *Region, insertAt int) error {
	if err := m.regionIndex.Put(r, r.mapping); err != nil {
		return err
	}
	regions := m.fileRegions[finfo.ID]
	regions = append(regions, nil)
	copy(regions[insertAt+1:], regions[insertAt:])
	regions[insertAt] = r
	m.fileRegions[finfo.ID] = regions
	m.mappedMemorySize += r.size
	m.logger.WithFields(logrus.Fields{
		"file": finfo.ID.String(), "ofs": r.ofs, "size": r.size,
	}).Debug("mman: region mapped")
	return nil
}

// MakeCursor resolves or creates a Region covering offset and binds a new
// FixedCursor to it (spec.md §4.5). size of 0 means "as large as the
// Manager's geometry permits".
func (m *Manager) MakeCursor(id FileID, offset, size uint64, flags int) (*FixedCursor, error) {
	if m.closed {
		return nil, newError(KindOutOfRange, "manager is closed")
	}
	finfo, err := m.getOrCreateFileInfo(id)
	if err != nil {
		return nil, err
	}
	if offset >= finfo.Size {
		return nil, newError(KindOutOfRange, "offset %d >= file size %d for %s", offset, finfo.Size, id)
	}
	region, err := m.obtainRegion(finfo, offset, size, flags)
	if err != nil {
		return nil, err
	}

	requested := finfo.Size - offset
	if size > 0 {
		requested = min(requested, size)
	}
	observable := min(requested, region.OfsEnd()-offset)

	c := &FixedCursor{mgr: m, finfo: finfo, ofs: offset, size: observable, region: region, flags: flags}
	if err := m.cursorIndex.Put(c, region); err != nil {
		return nil, err
	}
	region.refs++
	_ = m.regionIndex.Hit(region)
	return c, nil
}

// MakeBuffer returns a SlidingBuffer over [offset, offset+size) of id,
// binding an initial Cursor as large as the Manager's geometry permits
// (spec.md §4.6).
func (m *Manager) MakeBuffer(id FileID, offset, size uint64, flags int) (*SlidingBuffer, error) {
	if m.closed {
		return nil, newError(KindOutOfRange, "manager is closed")
	}
	finfo, err := m.getOrCreateFileInfo(id)
	if err != nil {
		return nil, err
	}
	if offset > finfo.Size {
		return nil, newError(KindOutOfRange, "offset %d > file size %d for %s", offset, finfo.Size, id)
	}
	avail := finfo.Size - offset
	if size > 0 {
		avail = min(avail, size)
	}
	buf := &SlidingBuffer{mgr: m, id: id, ofs: offset, size: avail, flags: flags}
	if avail > 0 {
		c, err := m.MakeCursor(id, offset, avail, flags)
		if err != nil {
			return nil, err
		}
		buf.cursor = c
	}
	return buf, nil
}

func (m *Manager) releaseCursor(c *FixedCursor) {
	if region, err := m.cursorIndex.Take(c); err == nil {
		region.refs--
	}
}

// Collect evicts every unreferenced Region (equivalent to evict(0)).
func (m *Manager) Collect() int { return m.evict(0) }

// ForceReleaseByPathPrefix releases every Region whose file id starts with
// prefix, regardless of whether it is currently referenced by Cursors
// (spec.md §4.7). Reads through Cursors still bound to a force-released
// Region are undefined afterwards; this is intended only for platforms
// that forbid deleting files with open mappings.
func (m *Manager) ForceReleaseByPathPrefix(prefix string) (int, error) {
	freed := 0
	for id, regions := range m.fileRegions {
		if !id.isPath || len(id.path) < len(prefix) || id.path[:len(prefix)] != prefix {
			continue
		}
		snapshot := append([]*Region(nil), regions...)
		for _, r := range snapshot {
			if r.Referenced() {
				m.logger.WithField("region", r.String()).Warnf("mman: force-releasing region with %d active cursor(s); their reads are now undefined", r.refs)
			}
			if err := m.removeRegion(r); err != nil {
				return freed, err
			}
			freed++
		}
	}
	return freed, nil
}

// removeRegion unmaps r and removes it from every index, regardless of
// whether it is still referenced by live Cursors (the caller is
// responsible for only calling this when that is actually intended: LRU
// eviction checks reference count first; ForceReleaseByPathPrefix and
// Close intentionally do not).
func (m *Manager) removeRegion(r *Region) error {
	// unmap first: every index mutation below must only happen once the OS
	// mapping is actually gone, so a failure here leaves r exactly as it
	// was — still registered, still mapped, still retryable by a later
	// Close or evict (spec.md §4.7).
	if err := r.mapping.unmap(); err != nil {
		return err
	}

	regions := m.fileRegions[r.finfo.ID]
	for i, candidate := range regions {
		if candidate == r {
			regions = append(regions[:i], regions[i+1:]...)
			break
		}
	}
	if len(regions) == 0 {
		delete(m.fileRegions, r.finfo.ID)
		_, _ = m.pathIndex.Take(r.finfo.ID)
	} else {
		m.fileRegions[r.finfo.ID] = regions
	}

	if _, err := m.regionIndex.Take(r); err != nil {
		return err
	}
	m.mappedMemorySize -= r.size
	return nil
}

// Close attempts to unmap every Region. If all succeed, every index is
// cleared and the Manager is marked closed. If any mapping fails to
// unmap, the successfully-closed Regions are removed from the indexes,
// the Manager remains open, and a KindCloseWithActive error enumerating
// the failed Regions is returned. A second Close on an already-closed
// Manager is a no-op (spec.md §4.7).
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}

	var offending []string
	failures := newMultiError()
	regions := make([]*Region, 0, m.regionIndex.Len())
	m.regionIndex.Do(func(r *Region, _ *osMapping) bool {
		regions = append(regions, r)
		return true
	})

	for _, r := range regions {
		if r.Referenced() {
			m.logger.WithField("region", r.String()).Warnf("mman: close found %d active cursor(s) on region", r.refs)
		}
		if err := m.removeRegion(r); err != nil {
			offending = append(offending, r.String())
			failures.append(err)
			continue
		}
	}

	if len(offending) > 0 {
		err := newCloseWithActive(offending, failures.result())
		m.logger.WithField("regions", offending).Warn("mman: close left regions mapped")
		return err
	}

	m.pathIndex.Clear()
	m.regionIndex.Clear()
	m.cursorIndex.Clear()
	m.fileRegions = make(map[FileID][]*Region)
	m.mappedMemorySize = 0
	m.closed = true
	return nil
}

// sortedInsertPos returns the index at which a region starting at offset
// should be inserted into regions (sorted by Ofs) to keep it sorted.
func sortedInsertPos(regions []*Region, offset uint64) int {
	return sort.Search(len(regions), func(i int) bool {
		return regions[i].ofs > offset
	})
}
