// Package heap implements the per-thread buddy allocator the rest of qdf
// allocates columnar storage from (spec §4.2). It is grounded on
// cznic/exp/lldb's Allocator/FLT pair (falloc.go, flt.go): the same
// split/coalesce/free-list-bucket algorithm, translated from file-offset
// "atoms" addressed through a Filer to in-process byte pools addressed
// through plain Go slices and block descriptors, since Go already gives us
// safe pointers where lldb had to fake a linked list inside raw file bytes.
package heap

import "math/bits"

// MinOrder is the smallest block order (2^MinOrder bytes == 64 B), matching
// the spec's pool-header minimum block size.
const MinOrder = 6

// PoolOrderDefault is log2 of the default pool size (32 MiB). A standard
// pool's cascade split never yields a free block larger than
// PoolOrderDefault-1, since the whole pool itself is split at creation.
const PoolOrderDefault = 25

// MaxOrderDefault is the hard cap order served by pools (oversized pools
// included) before an allocation is routed to a direct large mapping
// (spec §4.2 step 1, "sizes exceeding MAX ... route to a direct-mmap
// tracker").
const MaxOrderDefault = 30 // up to 1 GiB via one oversized pool

// SlabOrdersDefault bounds the low end of the order range served by the
// per-heap LIFO slab cache.
const SlabOrdersDefault = 12 // orders MinOrder..MinOrder+SlabOrdersDefault-1

// SlabCapacityDefault is the max number of blocks cached per slab order.
const SlabCapacityDefault = 64

// Config tunes a Heap's pool and slab sizing. The zero value is invalid;
// use DefaultConfig. Mirrors the plain-struct-with-documented-defaults
// style of cznic/exp/dbm.Options rather than a functional-options API.
type Config struct {
	// PoolOrder is log2 of the size of a standard (non-oversized) pool.
	PoolOrder uint8
	// MaxOrder is the largest order served by pools; larger requests use
	// a direct mapping (see package heap's direct.go).
	MaxOrder uint8
	// SlabOrders is how many of the smallest orders get a slab cache.
	SlabOrders uint8
	// SlabCapacity caps blocks retained per slab order.
	SlabCapacity int
}

// DefaultConfig returns the spec's baseline sizing (32 MiB pools, slabs for
// orders 6..17, slab depth 64).
func DefaultConfig() Config {
	return Config{
		PoolOrder:    PoolOrderDefault,
		MaxOrder:     MaxOrderDefault,
		SlabOrders:   SlabOrdersDefault,
		SlabCapacity: SlabCapacityDefault,
	}
}

// orderFor returns the smallest order whose block can hold n bytes
// including the fixed 32-byte header, never below MinOrder. If that order
// exceeds maxOrder it returns maxOrder+1 instead.
func orderFor(n int, maxOrder uint8) uint8 {
	need := n + 32
	if need < 1<<MinOrder {
		return MinOrder
	}
	o := uint8(bits.Len(uint(need - 1)))
	if o < MinOrder {
		o = MinOrder
	}
	if o > maxOrder {
		return maxOrder + 1 // signals oversized to the caller
	}
	return o
}
