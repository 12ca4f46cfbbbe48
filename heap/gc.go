package heap

import (
	"sync"
	"sync/atomic"

	"github.com/qdfcore/qdf/internal/platform"
)

// parallelFlag is the process-global flag from spec §3/§4.5: while set,
// buddy coalescing is disabled everywhere because a block's buddy may sit
// on another heap's freelist and touching it races that heap's owner.
var (
	parallelFlag atomic.Bool
	gcMu         sync.Mutex
)

// ParallelBegin marks the start of a parallel execution window.
func ParallelBegin() { parallelFlag.Store(true) }

// ParallelEnd clears the parallel flag and runs a full GC across every
// registered heap (spec §4.5, §6.1).
func ParallelEnd() {
	parallelFlag.Store(false)
	gcMu.Lock()
	defer gcMu.Unlock()
	registry.Range(func(_, v any) bool {
		v.(*Heap).gc()
		return true
	})
}

// fence is a sequentially-consistent synchronization point used by
// Destroy's drain/fence/drain sequence (spec §5).
func fence() {
	var x atomic.Int32
	x.Store(1)
	_ = x.Load()
}

// GC runs garbage collection for h alone: flush its own foreign list to
// the owning heaps, flush slabs, reclaim empty oversized pools, and
// release pages held by large free blocks. It does not sweep h's
// freelists for blocks whose pool another heap owns. While parallel_flag
// is set it does nothing and returns nil (spec §6.1).
func (h *Heap) GC() error {
	if parallelFlag.Load() {
		return nil
	}
	gcMu.Lock()
	defer gcMu.Unlock()
	h.gc()
	return nil
}

func (h *Heap) gc() {
	h.flushForeignSelf()
	h.flushSlabs()
	h.reclaimOversizedPools()
	h.ReleasePages()
}

// flushSlabs returns every slab-cached block to the ordinary freelist path
// with full coalescing, per spec §4.2 "the GC flushes slabs with full
// coalescing before structural reclamation."
func (h *Heap) flushSlabs() {
	for order, stack := range h.slabs {
		for _, b := range stack {
			h.coalesceFree(b)
		}
		h.slabs[order] = stack[:0]
	}
}

// reclaimOversizedPools unmaps any oversized pool owned by h that has gone
// completely free, judged by summing the blocks in the pool's own
// free-block map (spec §4.5 phase 4). Blocks held in a slab cache are not
// in that map, so they count as live. Standard pools are never unmapped.
func (h *Heap) reclaimOversizedPools() {
	kept := h.pools[:0]
	for _, p := range h.pools {
		if !p.oversized {
			kept = append(kept, p)
			continue
		}
		if h.poolFullyFree(p) {
			h.unlinkPoolFreelists(p)
			p.destroy()
			continue
		}
		kept = append(kept, p)
	}
	h.pools = kept
}

func (h *Heap) poolFullyFree(p *Pool) bool {
	total := p.freeBytesLocal() + (int64(1) << MinOrder) // header block is "live" by convention
	return total >= int64(1)<<p.order
}

func (h *Heap) unlinkPoolFreelists(p *Pool) {
	for off, b := range p.freeByOff {
		h.removeFree(b)
		delete(p.freeByOff, off)
	}
}

// ReleasePages advises the kernel to discard pages backing free blocks
// larger than one page, keeping the header/freelist-adjacent bytes
// resident (spec §4.5 phase 5). Standard pools keep their reservation;
// only the physical pages are released.
func (h *Heap) ReleasePages() error {
	if parallelFlag.Load() {
		return nil
	}
	page := platform.PageSize()
	for _, p := range h.pools {
		if p.mapping == nil {
			continue
		}
		for _, b := range p.freeByOff {
			sz := b.Size()
			if sz <= int64(page) {
				continue
			}
			_ = p.mapping.DiscardTail(int(b.off)+page, int(sz)-page)
		}
	}
	return nil
}
