package heap

import "testing"

// TestCoalesceFreeMergesToPoolTop is boundary scenario B1 (spec §8):
// freeing a run of sibling buddy blocks must climb orders all the way to
// the top, leaving avail with exactly the top bit set. It is constructed
// directly on a bare Pool rather than through newPool, since newPool
// permanently reserves one leaf as a pool header and so never itself
// presents a fully coalescible region -- this isolates coalesceFree's own
// climbing logic, which is what regresses if the merged block's order is
// never incremented.
func TestCoalesceFreeMergesToPoolTop(t *testing.T) {
	cfg := Config{PoolOrder: MinOrder + 2, MaxOrder: MinOrder + 2, SlabOrders: 0, SlabCapacity: 0}
	h := New(cfg, nil)
	defer h.Destroy()

	p := &Pool{
		id:        1,
		order:     cfg.MaxOrder,
		heap:      h,
		bytes:     make([]byte, int64(1)<<cfg.MaxOrder),
		freeByOff: make(map[int64]*Block, 4),
	}
	h.pools = append(h.pools, p)

	leafSize := int64(1) << MinOrder
	leaves := []*Block{
		{pool: p, off: 0 * leafSize, order: MinOrder},
		{pool: p, off: 1 * leafSize, order: MinOrder},
		{pool: p, off: 2 * leafSize, order: MinOrder},
		{pool: p, off: 3 * leafSize, order: MinOrder},
	}

	// Free out of address order so the test also exercises the
	// lower-address-wins bookkeeping in coalesceFree, not just the
	// order increment.
	h.Free(leaves[1])
	h.Free(leaves[0])
	h.Free(leaves[3])
	h.Free(leaves[2])

	wantAvail := uint64(1) << cfg.MaxOrder
	if h.avail != wantAvail {
		t.Fatalf("avail = %#x, want exactly top bit %#x set", h.avail, wantAvail)
	}

	top := h.popFree(cfg.MaxOrder)
	if top == nil {
		t.Fatal("no free block at top order after coalescing")
	}
	if top.off != 0 {
		t.Fatalf("merged block off = %d, want 0", top.off)
	}
	if top.Size() != int64(1)<<cfg.MaxOrder {
		t.Fatalf("merged block size = %d, want %d", top.Size(), int64(1)<<cfg.MaxOrder)
	}
	if _, ok := p.freeByOff[0]; ok {
		t.Fatal("popFree did not remove the merged block from freeByOff")
	}
}

// TestCoalesceFreeSkipsNonBuddy checks that a block whose same-order
// neighbor is not free (or not its buddy) is simply pushed at its own
// order -- the common case coalesceFree must leave alone.
func TestCoalesceFreeSkipsNonBuddy(t *testing.T) {
	cfg := Config{PoolOrder: MinOrder + 2, MaxOrder: MinOrder + 2, SlabOrders: 0, SlabCapacity: 0}
	h := New(cfg, nil)
	defer h.Destroy()

	p := &Pool{
		id:        1,
		order:     cfg.MaxOrder,
		heap:      h,
		bytes:     make([]byte, int64(1)<<cfg.MaxOrder),
		freeByOff: make(map[int64]*Block, 4),
	}
	h.pools = append(h.pools, p)

	leafSize := int64(1) << MinOrder
	b := &Block{pool: p, off: 0, order: MinOrder}
	h.Free(b)

	if h.avail != 1<<MinOrder {
		t.Fatalf("avail = %#x, want only order %d bit set", h.avail, MinOrder)
	}
	got := h.popFree(MinOrder)
	if got == nil || got.off != 0 || got.Size() != leafSize {
		t.Fatalf("unexpected free block: %+v", got)
	}
}

// TestCrossThreadFreeThenParallelEnd is boundary scenario B2 (spec §8):
// a block allocated by one heap, freed via a different heap's Free (the
// cross-thread path), must end up back on the allocating heap's freelist
// once ParallelEnd runs its GC pass, and the freeing heap's foreign list
// must end up empty.
func TestCrossThreadFreeThenParallelEnd(t *testing.T) {
	cfgA := DefaultConfig()
	cfgA.PoolOrder = MinOrder + 4
	cfgA.MaxOrder = MinOrder + 4
	heapA := New(cfgA, nil)
	defer heapA.Destroy()

	cfgB := cfgA
	heapB := New(cfgB, nil)
	defer heapB.Destroy()

	block, err := heapA.Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := block.order
	wantOff := block.off

	// "thread B" frees a block it was handed from heap A: the owning
	// pool is not heapB's, so Free must queue it on heapB's foreign
	// list instead of touching heapA's freelists directly.
	heapB.Free(block)

	heapB.mu.Lock()
	queued := len(heapB.foreign)
	heapB.mu.Unlock()
	if queued != 1 {
		t.Fatalf("heapB.foreign length = %d, want 1 right after cross-thread free", queued)
	}

	ParallelEnd()

	heapB.mu.Lock()
	remaining := len(heapB.foreign)
	heapB.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("heapB.foreign length = %d after ParallelEnd, want 0", remaining)
	}

	heapA.mu.Lock()
	aForeign := len(heapA.foreign)
	heapA.mu.Unlock()
	if aForeign != 0 {
		t.Fatalf("heapA.foreign length = %d, want 0 (it never queued anything)", aForeign)
	}

	got, ok := heapA.pools[0].freeByOff[wantOff]
	if !ok {
		t.Fatal("block not found on heapA's freelist after ParallelEnd")
	}
	if got.order < wantOrder {
		t.Fatalf("block order = %d, want >= %d (coalescing should never shrink it)", got.order, wantOrder)
	}
}
