package value

import (
	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
)

// Cap returns the number of elements v's current backing block can hold
// without growing, or 0 for container/file/atom values that have no flat
// byte payload to grow in place.
func (v *Value) Cap() int64 {
	if v.block == nil {
		return 0
	}
	esz := Esz(v.typ)
	if esz == 0 {
		return 0
	}
	return (v.block.Size() - headerReserve) / int64(esz)
}

// EnsureCapacity grows v's backing block so it can hold at least n
// elements. If v is uniquely held (rc==1) it scratch-reallocs: allocate a
// new block, copy the payload, free the old block. A shared value is
// rejected with qerr.TYPE (COW first). Rejects slices outright: a SLICE
// view has no block of its own to grow (spec §9(c), recorded as an Open
// Question decision in SPEC_FULL.md).
func (v *Value) EnsureCapacity(n int64) error {
	if v.parent != nil {
		return qerr.New(qerr.TYPE, "value.EnsureCapacity", "cannot append to a slice view")
	}
	if v.Cap() >= n {
		return nil
	}
	esz := Esz(v.typ)
	if esz == 0 {
		return qerr.New(qerr.TYPE, "value.EnsureCapacity", "%s has no fixed element size", v.typ)
	}

	newCap := v.Cap()
	if newCap < 1 {
		newCap = 1
	}
	for newCap < n {
		newCap *= 2
	}
	nbytes := esz * int(newCap)

	if v.rc.Load() == 1 {
		blk, err := v.heap.Alloc(nbytes)
		if err != nil {
			return err
		}
		newData := blk.Bytes()[headerReserve : headerReserve+esz*int(v.length)]
		copy(newData, v.data)
		oldBlock := v.block
		oldHeap := v.heap
		v.block = blk
		v.data = blk.Bytes()[headerReserve : headerReserve+esz*int(v.length)]
		if oldBlock != nil {
			oldHeap.Free(oldBlock)
		}
		return nil
	}

	// A shared Value must not be mutated in place -- the caller is
	// expected to COW it first (spec §4.4's cow contract) and call
	// EnsureCapacity/Append on the resulting uniquely-held copy.
	return qerr.New(qerr.TYPE, "value.EnsureCapacity", "cannot grow a shared value in place; COW first")
}

// Append grows v (which must be uniquely held; call COW first if not) and
// copies elems onto the end, returning the new length. elems must be a
// whole number of v's element size.
func (v *Value) Append(elems []byte) (int64, error) {
	esz := Esz(v.typ)
	if esz == 0 {
		return 0, qerr.New(qerr.TYPE, "value.Append", "%s has no fixed element size", v.typ)
	}
	if len(elems)%esz != 0 {
		return 0, qerr.New(qerr.RANGE, "value.Append", "elems length %d is not a multiple of element size %d", len(elems), esz)
	}
	addN := int64(len(elems) / esz)
	if err := v.EnsureCapacity(v.length + addN); err != nil {
		return 0, err
	}
	base := v.block.Bytes()[headerReserve:]
	copy(base[int(v.length)*esz:], elems)
	v.length += addN
	v.data = base[:int(v.length)*esz]
	return v.length, nil
}

// Concat returns a new vector holding a's then b's elements. a and b must
// have the same type; any other pair, widenable by Widen or not, fails
// with qerr.TYPE. Concat does not apply Widen or convert elements.
func Concat(a, b *Value) (*Value, error) {
	if a.typ != b.typ {
		return nil, qerr.New(qerr.TYPE, "value.Concat", "mismatched types %s and %s", a.typ, b.typ)
	}
	esz := Esz(a.typ)
	if esz == 0 {
		return nil, qerr.New(qerr.TYPE, "value.Concat", "%s has no fixed element size", a.typ)
	}
	out, err := NewVector(a.heap, a.typ, a.length+b.length)
	if err != nil {
		return nil, err
	}
	copy(out.data, a.data)
	copy(out.data[int(a.length)*esz:], b.data)
	return out, nil
}

// Slice returns a zero-copy view of v covering [off, off+length). The
// view retains v as its parent and is released when the view itself is
// released (spec §3.1's SLICE attribute).
func (v *Value) Slice(off, length int64) (*Value, error) {
	if off < 0 || length < 0 || off+length > v.length {
		return nil, qerr.New(qerr.RANGE, "value.Slice", "slice [%d,%d) out of bounds for length %d", off, off+length, v.length)
	}
	esz := Esz(v.typ)
	if esz == 0 {
		return nil, qerr.New(qerr.TYPE, "value.Slice", "%s has no fixed element size", v.typ)
	}
	sv := &Value{
		typ:      v.typ,
		attrs:    v.attrs | SliceAttr,
		length:   length,
		parent:   v.Retain(),
		sliceOff: off,
		data:     v.data[int(off)*esz : int(off+length)*esz],
	}
	sv.rc.Store(1)
	return sv, nil
}

// NewFileVector builds a read-only, file-mapped vector view (mmod ==
// MmodFile) over data, which must be a sub-slice of mapping's bytes
// (spec §4.1's zero-copy column load). The Value takes ownership of
// mapping: Release unmaps it once the last reference is dropped.
func NewFileVector(typ Type, mapping FileMapping, data []byte, length int64) *Value {
	v := &Value{typ: typ, mmod: MmodFile, length: length, data: data, fileMapping: mapping}
	v.rc.Store(1)
	return v
}

// SetNullmap installs an external null bitmap vector (always NULLMAP_EXT,
// per SPEC_FULL.md's Open Question decision), retaining it and marking
// attrs. Replaces any previous nullmap, releasing it.
func (v *Value) SetNullmap(nm *Value) {
	v.nullmap.Release()
	v.nullmap = nm.Retain()
	v.attrs |= HasNulls | NullmapExt
}

// Nullmap returns v's external null bitmap vector, or nil if v has none.
func (v *Value) Nullmap() *Value { return v.nullmap }

// Heap returns the heap v's storage was allocated from, or nil for
// file-mapped/atom/container values with no buddy-backed block.
func (v *Value) Heap() *heap.Heap { return v.heap }

// Mmod returns v's memory-origin tag.
func (v *Value) Mmod() Mmod { return v.mmod }

// SetAttrs overwrites v's flag bits in place; v must be uniquely held.
func (v *Value) SetAttrs(a Attrs) { v.attrs = a }
