package heap

import (
	"github.com/qdfcore/qdf/internal/platform"
	"github.com/qdfcore/qdf/qerr"
)

// directMapping tracks one allocation that exceeded MaxOrder and was
// page-mapped directly instead of coming from a buddy pool (spec §4.3). A
// small buddy-allocated tracker in the source design becomes an ordinary
// Go struct owned by the allocating Heap's slice of trackers.
type directMapping struct {
	mapping *platform.Mapping
	size    int
}

// allocDirect page-maps payloadBytes directly and records a tracker on h.
// Direct blocks must be freed from their allocating heap; FreeDirect on
// any other heap leaks by contract (spec §4.2 step 2, §4.3).
func (h *Heap) allocDirect(payloadBytes int) (*Block, error) {
	m, err := platform.ReserveCommit(payloadBytes + 32)
	if err != nil {
		return nil, qerr.Wrap(qerr.OOM, "heap.allocDirect", err)
	}
	p := &Pool{heap: h, order: 0, oversized: true, mapping: m, bytes: m.Bytes, freeByOff: map[int64]*Block{}}
	h.direct = append(h.direct, &directMapping{mapping: m, size: payloadBytes + 32})
	return &Block{pool: p, off: 0, order: directOrderMarker}, nil
}

// directOrderMarker flags a Block as a direct mapping rather than a buddy
// block: its Pool is a private single-block pseudo-pool, never shared with
// a heap's ordinary pool table, so Free can tell the two apart.
const directOrderMarker = 255

// IsDirect reports whether b came from allocDirect rather than a buddy pool.
func (b *Block) IsDirect() bool { return b.order == directOrderMarker }

// FreeDirect releases a direct mapping. Must be called from the heap that
// allocated it.
func (h *Heap) FreeDirect(b *Block) error {
	if !b.IsDirect() {
		return qerr.New(qerr.TYPE, "heap.FreeDirect", "block is not a direct mapping")
	}
	for i, d := range h.direct {
		if d.mapping == b.pool.mapping {
			h.direct = append(h.direct[:i], h.direct[i+1:]...)
			break
		}
	}
	return b.pool.mapping.Unmap()
}
