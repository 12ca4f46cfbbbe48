package heap

import (
	"sync/atomic"

	"github.com/qdfcore/qdf/internal/platform"
	"github.com/qdfcore/qdf/qerr"
)

var poolSeq atomic.Uint32

// Pool is a self-aligned contiguous byte arena backing one buddy allocator
// (spec §4.2 "Pools"). addr-masking to find a pool from a bare address is
// replaced here by Block always carrying its *Pool directly -- see
// DESIGN.md's Open Question decision on this -- so Pool does not need to
// live at a page-aligned address, only to behave like a single power-of-two
// region for split/coalesce arithmetic.
type Pool struct {
	id        uint32
	order     uint8
	heap      *Heap
	oversized bool

	mapping *platform.Mapping
	bytes   []byte

	headerOff int64
	// freeByOff is the set of this pool's currently-free blocks keyed by
	// offset, used to find a buddy in O(1) during coalescing.
	freeByOff map[int64]*Block
}

func newPool(h *Heap, order uint8, oversized bool) (*Pool, error) {
	size := int64(1) << order
	m, err := platform.ReserveCommit(int(size))
	if err != nil {
		return nil, qerr.Wrap(qerr.OOM, "heap.newPool", err)
	}

	p := &Pool{
		id:        poolSeq.Add(1),
		order:     order,
		heap:      h,
		oversized: oversized,
		mapping:   m,
		bytes:     m.Bytes,
		freeByOff: make(map[int64]*Block, 16),
	}

	// Cascade-split from order down to MinOrder, pushing each right half
	// onto its freelist; the leftmost MinOrder block becomes the header
	// and is never freed (spec §4.2 "Pool creation").
	off := int64(0)
	sz := size
	for o := order; o > MinOrder; o-- {
		half := sz / 2
		right := &Block{pool: p, off: off + half, order: o - 1}
		h.pushFree(right)
		p.freeByOff[right.off] = right
		sz = half
	}
	p.headerOff = off

	return p, nil
}

// destroy unmaps the pool's backing memory. Callers must ensure no blocks
// from this pool are referenced elsewhere first.
func (p *Pool) destroy() error {
	if p.mapping == nil {
		return nil
	}
	err := p.mapping.Unmap()
	p.mapping = nil
	p.bytes = nil
	return err
}

// freeBytesLocal sums the size of every currently free block tracked in
// this pool, used by the oversized-pool reclaim pass (spec §4.5 phase 4).
func (p *Pool) freeBytesLocal() int64 {
	var n int64
	for _, b := range p.freeByOff {
		n += b.Size()
	}
	return n
}

// contains reports whether offset off lies within this pool's extent.
func (p *Pool) contains(off int64) bool {
	return off >= 0 && off < int64(len(p.bytes))
}
