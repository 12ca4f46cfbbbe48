package value

import (
	"sync/atomic"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
)

// FileMapping is the minimal interface a mapped-file-backed Value needs
// from whatever produced its bytes: release the mapping. Both
// *internal/platform.Mapping (raw x/sys/unix mmap) and edsrzf/mmap-go's
// *MMap satisfy it, so colfile can pick either without this package caring
// which OS mapping primitive was used (spec §4.1/§4.9's "unmapping is
// driven by the normal release path").
type FileMapping interface {
	Unmap() error
}

// headerReserve is the byte span every buddy-backed block reserves at its
// front for the value's header, even though the header itself lives in the
// Go struct, not in those bytes -- see heap.Heap.Alloc's doc comment. This
// keeps block sizing identical to the source design (order = ceil_log2
// (payload + 32)) without needing a byte-overlaid header anywhere.
const headerReserve = 32

// Value is a reference-counted, copy-on-write handle over one of: a
// primitive vector's flat byte payload, a small inline atom, or a
// container's owned children (LIST elements, TABLE's [schema, col...],
// PARTED's segments, MAPCOMMON's [keys, rowcounts]). Spec §3-§4.4.
//
// Every container shape funnels through the single `children []*Value`
// slice instead of a per-kind open-coded walk: Release and COW only need
// to know "does this value own other values", not which kind it is. This
// is the one redesign spec §9 calls out by name ("a single recursive
// release routine driven by a per-type 'owns children' flag/table instead
// of four open-coded release_list/release_table/... functions").
type Value struct {
	typ    Type
	attrs  Attrs
	mmod   Mmod
	length int64

	rc atomic.Int32

	heap  *heap.Heap
	block *heap.Block
	data  []byte

	fileMapping FileMapping

	children   []*Value
	nullmap    *Value
	strPayload *Value

	parent   *Value
	sliceOff int64

	sso    [7]byte
	ssoLen int8 // >=0 when typ == AtomStr and the string is inline
}

// Type returns v's tag.
func (v *Value) Type() Type { return v.typ }

// Attrs returns v's flag bits.
func (v *Value) Attrs() Attrs { return v.attrs }

// Len returns v's element count (rows for a vector, child count for a
// container).
func (v *Value) Len() int64 { return v.length }

// RC returns the current reference count, for tests and diagnostics.
func (v *Value) RC() int32 { return v.rc.Load() }

// Data returns v's raw element bytes; nil for container/atom kinds that
// don't carry a flat payload.
func (v *Value) Data() []byte { return v.data }

// Children returns v's owned child values (LIST elements, TABLE's
// [schema, columns...], PARTED's segments, MAPCOMMON's [keys, counts]).
// The returned slice must not be retained past a mutation of v.
func (v *Value) Children() []*Value { return v.children }

func ownsChildren(t Type) bool {
	switch {
	case t == List, t == Table, t == MapCommon, t.IsParted():
		return true
	default:
		return false
	}
}

// NewVector allocates a zero-filled primitive vector of length elements
// from h (spec §4.2's alloc(payload_bytes), wrapped with vector metadata).
func NewVector(h *heap.Heap, typ Type, length int64) (*Value, error) {
	esz := Esz(typ)
	if esz == 0 {
		return nil, qerr.New(qerr.TYPE, "value.NewVector", "%s has no fixed element size", typ)
	}
	if length < 0 {
		return nil, qerr.New(qerr.RANGE, "value.NewVector", "negative length %d", length)
	}
	nbytes := esz * int(length)
	blk, err := h.Alloc(nbytes)
	if err != nil {
		return nil, err
	}
	v := &Value{typ: typ, length: length, heap: h, block: blk}
	v.rc.Store(1)
	v.data = blk.Bytes()[headerReserve : headerReserve+nbytes]
	return v, nil
}

// NewContainer builds a LIST/TABLE/MAPCOMMON/PARTED value owning children,
// retaining each one. Callers that built children just for this call
// should not also hold their own reference past the call unless they mean
// to retain it (spec §4.4's "retain on install").
func NewContainer(typ Type, children []*Value) (*Value, error) {
	if !ownsChildren(typ) {
		return nil, qerr.New(qerr.TYPE, "value.NewContainer", "%s is not a container type", typ)
	}
	v := &Value{typ: typ, length: int64(len(children)), children: children}
	v.rc.Store(1)
	for _, c := range children {
		c.Retain()
	}
	return v, nil
}

// Retain bumps v's reference count and returns v, so callers can write
// `held := v.Retain()`.
func (v *Value) Retain() *Value {
	v.rc.Add(1)
	return v
}

// Release drops v's reference count; at zero it releases every owned
// child, unmaps or frees its own storage, and recurses into parent slices
// (spec §4.4's generic typed-child release walk).
func (v *Value) Release() {
	if v == nil {
		return
	}
	if v.rc.Add(-1) != 0 {
		return
	}

	for _, c := range v.children {
		c.Release()
	}
	v.nullmap.Release()
	v.strPayload.Release()
	v.parent.Release()

	switch v.mmod {
	case MmodFile:
		if v.fileMapping != nil {
			_ = v.fileMapping.Unmap()
		}
	case MmodDirect:
		if v.block != nil {
			_ = v.heap.FreeDirect(v.block)
		}
	default:
		if v.block != nil {
			v.heap.Free(v.block)
		}
	}
}

// COW returns v unchanged if it is uniquely held (rc == 1); otherwise it
// allocates an independent copy, retains every child the copy now also
// references, releases the caller's reference to the original, and
// returns the copy (spec §4.4's "cow"). Copies are shallow for containers
// (the child pointer slice is duplicated, not the children themselves) and
// a real payload duplication for flat vectors, since there is nothing
// to share by pointer in a byte array two owners might mutate separately.
func (v *Value) COW() (*Value, error) {
	if v.rc.Load() == 1 {
		return v, nil
	}

	cp, err := v.clone()
	if err != nil {
		return nil, err
	}
	v.Release()
	return cp, nil
}

func (v *Value) clone() (*Value, error) {
	cp := &Value{typ: v.typ, attrs: v.attrs, mmod: v.mmod, length: v.length, sso: v.sso, ssoLen: v.ssoLen}
	cp.rc.Store(1)

	if v.children != nil {
		cp.children = append([]*Value(nil), v.children...)
		for _, c := range cp.children {
			c.Retain()
		}
	}
	if v.nullmap != nil {
		cp.nullmap = v.nullmap.Retain()
	}
	if v.strPayload != nil {
		cp.strPayload = v.strPayload.Retain()
	}
	if v.parent != nil {
		cp.parent = v.parent.Retain()
		cp.sliceOff = v.sliceOff
	}

	if v.data != nil && v.block != nil {
		esz := Esz(v.typ)
		nbytes := esz * int(v.length)
		blk, err := v.heap.Alloc(nbytes)
		if err != nil {
			cp.children = nil // detach before Release to avoid double-free of shared children
			return nil, err
		}
		cp.heap = v.heap
		cp.block = blk
		cp.data = blk.Bytes()[headerReserve : headerReserve+nbytes]
		copy(cp.data, v.data)
	}
	return cp, nil
}

// detach clears v's owned-reference fields without releasing them,
// transferring ownership to whatever the caller moves them into next
// (spec §4.4's "detach" variant). Nothing in qdf calls it: EnsureCapacity
// keeps the same Value and only swaps its block, so there are no child
// references to move.
func (v *Value) detach() {
	v.children = nil
	v.nullmap = nil
	v.strPayload = nil
	v.parent = nil
}
