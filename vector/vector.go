// Package vector provides the vec_* operations over primitive columns
// (spec §4.6): construction, append, concat, slicing and zero-copy load
// from a mapped column file. The ownership mechanics themselves (retain,
// release, cow) live in package value; vector is the thin, named
// operation surface a table or a query engine actually calls.
package vector

import (
	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/value"
)

// New allocates a zero-filled primitive vector of length rows.
func New(h *heap.Heap, typ value.Type, length int64) (*value.Value, error) {
	return value.NewVector(h, typ, length)
}

// Append appends elems (raw element bytes, a multiple of the vector's
// element size) to v, copy-on-writing first if v is shared, and returns
// the (possibly new) vector the caller must use from here on.
func Append(v *value.Value, elems []byte) (*value.Value, error) {
	if v.Attrs()&value.SliceAttr != 0 {
		return nil, qerr.New(qerr.TYPE, "vector.Append", "cannot append to a slice view")
	}
	owned, err := v.COW()
	if err != nil {
		return nil, err
	}
	if _, err := owned.Append(elems); err != nil {
		return nil, err
	}
	return owned, nil
}

// Concat returns a new vector holding a's elements followed by b's.
func Concat(a, b *value.Value) (*value.Value, error) {
	return value.Concat(a, b)
}

// Slice returns a zero-copy view of v covering [off, off+length).
func Slice(v *value.Value, off, length int64) (*value.Value, error) {
	return v.Slice(off, length)
}

// LoadMapped builds a zero-copy vector view over an already-mapped column
// file's payload region (spec §4.1, §4.9's zero-copy read mode). The
// returned vector takes ownership of mapping.
func LoadMapped(typ value.Type, mapping value.FileMapping, payload []byte, length int64) *value.Value {
	return value.NewFileVector(typ, mapping, payload, length)
}
