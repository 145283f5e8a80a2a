package mman

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mirrors test_window in original_source/smmap/test/test_mman.py, adapted
// to mapWindow's in-place (pointer-receiver) methods and to align's divergence (spec.md
// §4.2 step 5: the end is never rounded up).
func TestMapWindow_ExtendAndAlign(t *testing.T) {
	wl := mapWindow{ofs: 0, size: 1}
	wc := mapWindow{ofs: 1, size: 1}
	wc2 := mapWindow{ofs: 10, size: 5}
	wr := mapWindow{ofs: 8000, size: 50}

	assert.EqualValues(t, 1, wl.ofsEnd())
	assert.EqualValues(t, 2, wc.ofsEnd())
	assert.EqualValues(t, 8050, wr.ofsEnd())

	maxsize := uint64(100)

	// extension does nothing if already in place.
	wc.extendLeftTo(wl, maxsize)
	assert.EqualValues(t, 1, wc.ofs)
	assert.EqualValues(t, 1, wc.size)

	wl.extendRightTo(wc, maxsize)
	wl.extendRightTo(wc, maxsize)
	assert.EqualValues(t, 0, wl.ofs)
	assert.EqualValues(t, 1, wl.size)

	// an actual left extension.
	pofsEnd := wc2.ofsEnd()
	wc2.extendLeftTo(wc, maxsize)
	assert.Equal(t, wc.ofsEnd(), wc2.ofs)
	assert.Equal(t, pofsEnd, wc2.ofsEnd(), "extension must not move ofsEnd")

	// respects maxsize.
	wc.extendRightTo(wr, maxsize)
	assert.EqualValues(t, 1, wc.ofs)
	assert.Equal(t, maxsize, wc.size)

	wc.extendRightTo(wr, maxsize)
	assert.EqualValues(t, 1, wc.ofs)
	assert.Equal(t, maxsize, wc.size)

	// without maxsize (0 means no cap).
	wc.extendRightTo(wr, 0)
	assert.Equal(t, wr.ofs, wc.ofsEnd())
	assert.EqualValues(t, 1, wc.ofs)

	// extend left.
	wr.extendLeftTo(wc2, maxsize)
	wr.extendLeftTo(wc2, maxsize)
	assert.Equal(t, maxsize, wr.size)

	wr.extendLeftTo(wc2, 0)
	assert.Equal(t, wc2.ofsEnd(), wr.ofs)
}

func TestMapWindow_AlignRoundsOfsDownNotSizeUp(t *testing.T) {
	w := mapWindow{ofs: 10, size: 50}
	w.align(4096)

	assert.EqualValues(t, 0, w.ofs)
	// the 10 bytes absorbed by rounding ofs down are added to size; size is
	// never rounded up past that, unlike the Python original's
	// align_to_mmap(size, True).
	assert.EqualValues(t, 60, w.size)
	assert.EqualValues(t, 60, w.ofsEnd(), "end must not move")
}

func TestMapWindow_AlignAlreadyAligned(t *testing.T) {
	w := mapWindow{ofs: 4096, size: 128}
	w.align(4096)
	assert.EqualValues(t, 4096, w.ofs)
	assert.EqualValues(t, 128, w.size)
}

func TestClamp(t *testing.T) {
	assert.EqualValues(t, 10, clamp(5, 10, 20), "clamp should raise to lo")
	assert.EqualValues(t, 20, clamp(25, 10, 20), "clamp should cap to hi")
	assert.EqualValues(t, 15, clamp(15, 10, 20), "clamp should pass through within range")
}
