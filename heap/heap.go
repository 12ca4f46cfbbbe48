package heap

import (
	"sync"
	"sync/atomic"

	"github.com/qdfcore/qdf/qerr"
	"go.uber.org/zap"
)

const numOrders = 64

var (
	heapSeq  atomic.Uint32
	registry sync.Map // uint32 -> *Heap
)

// Heap is a per-thread buddy allocator: its own pool table, freelists and
// slab cache. It is not safe for concurrent use by multiple goroutines --
// exactly like lldb.Allocator, it is "designed for consumption ... from one
// goroutine only or via a mutex" (lldb/filer.go) -- except for Free, which
// a goroutine other than the one driving this Heap may call on a block it
// was handed (spec §4.5's "cross-thread free").
type Heap struct {
	id  uint32
	cfg Config
	log *zap.Logger

	mu sync.Mutex // guards foreign only; see Free/flushForeignSelf

	pools  []*Pool
	orders [numOrders]orderList
	avail  uint64

	slabs map[uint8][]*Block

	foreign []*Block // blocks freed here whose owning pool is not ours

	direct []*directMapping
}

// New creates a heap with cfg and registers it. It is not idempotent: every
// call returns a new, independently registered Heap, even from the same
// goroutine. The caller owns the one-Heap-per-goroutine discipline; qdf
// does not use goroutine-local storage to enforce it.
func New(cfg Config, log *zap.Logger) *Heap {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Heap{
		id:    heapSeq.Add(1),
		cfg:   cfg,
		log:   log,
		slabs: make(map[uint8][]*Block, cfg.SlabOrders),
	}
	for o := uint8(MinOrder); o < MinOrder+cfg.SlabOrders; o++ {
		h.slabs[o] = nil
	}
	registry.Store(h.id, h)
	return h
}

// ID is this heap's registry identity.
func (h *Heap) ID() uint32 { return h.id }

func heapByID(id uint32) (*Heap, bool) {
	v, ok := registry.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Heap), true
}

// Destroy unregisters the heap and drains in-flight cross-thread frees
// targeting it (spec §5 "Destruction policy"): drain, fence, drain. The
// caller must have joined every goroutine that might still free a block
// owned by this heap; anything arriving after the second drain leaks by
// contract.
func (h *Heap) Destroy() error {
	registry.Delete(h.id)
	h.drainForeignFor()
	fence()
	h.drainForeignFor()

	for _, p := range h.pools {
		if err := p.destroy(); err != nil {
			return err
		}
	}
	h.pools = nil
	return nil
}

// drainForeignFor walks every other registered heap's foreign list and
// coalesces onto h each queued block whose pool h owns (ownership resolved
// by pool.heap), leaving the rest queued. Destroy runs it twice around a
// fence.
func (h *Heap) drainForeignFor() {
	registry.Range(func(_, v any) bool {
		other := v.(*Heap)
		if other == h {
			return true
		}
		other.mu.Lock()
		remaining := other.foreign[:0]
		for _, b := range other.foreign {
			if b.pool.heap == h {
				h.coalesceFree(b)
			} else {
				remaining = append(remaining, b)
			}
		}
		other.foreign = remaining
		other.mu.Unlock()
		return true
	})
}

// Alloc allocates a block able to hold payloadBytes (plus the implicit
// 32-byte header every Value caries) and returns it with rc left for the
// caller to interpret -- Heap hands out raw storage, package value owns
// the refcount.
func (h *Heap) Alloc(payloadBytes int) (*Block, error) {
	order := orderFor(payloadBytes, h.cfg.MaxOrder)
	if order > h.cfg.MaxOrder {
		return h.allocDirect(payloadBytes)
	}

	if order < MinOrder+h.cfg.SlabOrders {
		if stack := h.slabs[order]; len(stack) > 0 {
			b := stack[len(stack)-1]
			h.slabs[order] = stack[:len(stack)-1]
			return b, nil
		}
	}

	found := h.lowestAvail(order, h.cfg.MaxOrder)
	if found > h.cfg.MaxOrder {
		h.flushForeignSelf()
		found = h.lowestAvail(order, h.cfg.MaxOrder)
	}
	if found > h.cfg.MaxOrder {
		if err := h.grow(order); err != nil {
			return nil, err
		}
		found = h.lowestAvail(order, h.cfg.MaxOrder)
		if found > h.cfg.MaxOrder {
			return nil, qerr.New(qerr.OOM, "heap.Alloc", "no block of order %d after growth", order)
		}
	}

	b := h.popFree(found)
	for b.order > order {
		b = h.splitOnce(b)
	}
	return b, nil
}

// splitOnce halves b, keeps the lower half, frees the upper half at the
// same (now smaller) order (spec §4.2 step 4).
func (h *Heap) splitOnce(b *Block) *Block {
	newOrder := b.order - 1
	upperOff := b.off + (int64(1) << newOrder)
	upper := &Block{pool: b.pool, off: upperOff, order: newOrder}
	h.pushFree(upper)
	b.order = newOrder
	return b
}

func (h *Heap) grow(minOrder uint8) error {
	order := h.cfg.PoolOrder
	oversized := minOrder >= h.cfg.PoolOrder
	if oversized {
		order = minOrder + 1
	}
	p, err := newPool(h, order, oversized)
	if err != nil {
		return err
	}
	h.pools = append(h.pools, p)
	h.log.Debug("buddy pool grown", zap.Uint8("order", order), zap.Bool("oversized", oversized))
	return nil
}

// Free returns b to the allocator (spec §4.2 "Free"). Callers (package
// value) are responsible for releasing any typed children first.
func (h *Heap) Free(b *Block) {
	if !h.owns(b.pool) {
		h.mu.Lock()
		h.foreign = append(h.foreign, b)
		h.mu.Unlock()
		return
	}

	if b.order < MinOrder+h.cfg.SlabOrders && len(h.slabs[b.order]) < h.cfg.SlabCapacity {
		h.slabs[b.order] = append(h.slabs[b.order], b)
		return
	}

	h.coalesceFree(b)
}

func (h *Heap) owns(p *Pool) bool { return p.heap == h }

// coalesceFree merges b with any free buddy, climbing orders, then links
// the result. Coalescing is disabled while ParallelBegin/ParallelEnd's
// flag is set (spec §4.5's race with another heap's freelist); blocks then
// go straight onto this heap's freelist at their native order.
func (h *Heap) coalesceFree(b *Block) {
	if parallelFlag.Load() {
		h.pushFree(b)
		return
	}

	for b.order < h.cfg.MaxOrder {
		buddyOff := b.buddyOff()
		buddy, ok := b.pool.freeByOff[buddyOff]
		if !ok || buddy.order != b.order {
			break
		}
		h.removeFree(buddy)
		if buddyOff < b.off {
			b = buddy
		}
		b.order++
	}
	h.pushFree(b)
}

func (h *Heap) flushForeignSelf() {
	h.mu.Lock()
	pending := h.foreign
	h.foreign = nil
	h.mu.Unlock()

	for _, b := range pending {
		if owner, ok := heapByID(b.pool.heap.id); ok {
			owner.coalesceFree(b)
		}
	}
}

// Merge folds other's pools into h -- only legal while parallel_flag == 0
// (spec §6.1), same precondition as GC and ReleasePages.
func (h *Heap) Merge(other *Heap) error {
	if parallelFlag.Load() {
		return qerr.New(qerr.NYI, "heap.Merge", "cannot merge while parallel flag is set")
	}
	for _, p := range other.pools {
		p.heap = h
		h.pools = append(h.pools, p)
	}
	for o := range other.orders {
		ol := &other.orders[o]
		if ol.sentinel.next == nil {
			continue
		}
		for b := ol.popFront(); b != nil; b = ol.popFront() {
			h.pushFree(b)
		}
	}
	h.avail |= other.avail
	other.pools = nil
	other.avail = 0
	return nil
}
