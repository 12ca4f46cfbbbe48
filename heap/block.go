package heap

// Block is a handle to one buddy-allocated block: either live (returned by
// Alloc, owned by whatever called it) or sitting on a freelist/slab stack
// (prev/next meaningful, reused exactly like the pool-header note in spec
// §3.1 reuses the null-bitmap bytes for free-list links -- except here the
// "overlay" is just two struct fields on an ordinary Go value, since
// nothing stops us from using a real pointer where lldb had to fake one
// inside raw file bytes).
type Block struct {
	pool  *Pool
	off   int64
	order uint8

	prev, next *Block // valid only while on a freelist
}

// Pool is the pool this block belongs to.
func (b *Block) Pool() *Pool { return b.pool }

// Order is log2 of the block's size in bytes.
func (b *Block) Order() uint8 { return b.order }

// Size is the block's usable size in bytes, including its would-be 32-byte
// header -- callers needing payload capacity should subtract 32.
func (b *Block) Size() int64 {
	if b.IsDirect() {
		return int64(len(b.pool.bytes))
	}
	return int64(1) << b.order
}

// Bytes returns the block's backing storage. The slice is only valid for
// as long as the block remains allocated to its current owner.
func (b *Block) Bytes() []byte {
	if b.IsDirect() {
		return b.pool.bytes
	}
	sz := b.Size()
	return b.pool.bytes[b.off : b.off+sz]
}

func (b *Block) buddyOff() int64 {
	return b.off ^ b.Size()
}
