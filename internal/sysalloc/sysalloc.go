// Package sysalloc provides page-granular, header-prefixed allocations that
// live outside any single per-thread buddy heap. No other qdf package
// allocates through it: the heap registry, the direct-large-mapping
// trackers and the symbol table keep their state in ordinary Go memory.
// It does not participate in
// the buddy pool's order/freelist/slab machinery in package heap — it is
// the "sys allocator" leaf of the dependency order in spec §2.
package sysalloc

import (
	"fmt"

	"github.com/qdfcore/qdf/internal/platform"
)

// headerSize is the fixed prefix written before every allocation: the
// originally requested size, so Free can recover the full mapped extent.
const headerSize = 16

// Block is a page-backed, header-prefixed allocation.
type Block struct {
	mapping *platform.Mapping
	data    []byte
}

// Data returns the usable payload (excludes the header prefix).
func (b *Block) Data() []byte { return b.data }

// Alloc reserves at least n usable bytes, rounded up to a whole number of
// pages, and returns a Block whose Data() is exactly n bytes long.
func Alloc(n int) (*Block, error) {
	if n < 0 {
		return nil, fmt.Errorf("sysalloc: invalid size %d", n)
	}
	page := platform.PageSize()
	total := headerSize + n
	pages := (total + page - 1) / page
	if pages == 0 {
		pages = 1
	}
	m, err := platform.ReserveCommit(pages * page)
	if err != nil {
		return nil, err
	}
	putUint64(m.Bytes[0:8], uint64(n))
	return &Block{mapping: m, data: m.Bytes[headerSize : headerSize+n]}, nil
}

// Free releases the block's backing pages. The Block must not be used
// afterwards.
func (b *Block) Free() error {
	if b.mapping == nil {
		return nil
	}
	err := b.mapping.Unmap()
	b.mapping = nil
	b.data = nil
	return err
}

// Size reports the originally requested payload size, recovered from the
// header prefix -- useful when a Block travels through an interface that
// only carries the raw mapping.
func (b *Block) Size() int {
	if b.mapping == nil {
		return 0
	}
	return int(getUint64(b.mapping.Bytes[0:8]))
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * uint(i))
	}
	return v
}
