// Package table implements the schema + column-pointer block described in
// spec §4.7: a table is a single container Value whose children are
// `[schema, col0, ..., colN-1]`, schema being an I64 vector of interned
// column-name ids parallel to the column children.
package table

import (
	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/value"
	"github.com/qdfcore/qdf/vector"
)

// New builds an empty table: an empty I64 schema vector and no columns.
// AddCol grows it one column at a time.
func New(h *heap.Heap) (*value.Value, error) {
	schema, err := vector.New(h, value.VecI64, 0)
	if err != nil {
		return nil, err
	}
	t, err := value.NewContainer(value.Table, []*value.Value{schema})
	schema.Release()
	if err != nil {
		return nil, err
	}
	return t, nil
}

func schemaOf(t *value.Value) *value.Value {
	return t.Children()[0]
}

// NCols returns the number of columns in t.
func NCols(t *value.Value) int64 {
	return int64(len(t.Children())) - 1
}

// Schema returns t's schema vector (column-name ids, I64), one id per
// column, parallel to the column children.
func Schema(t *value.Value) *value.Value {
	return schemaOf(t)
}

// ColName returns the name id of column i.
func ColName(t *value.Value, i int64) (int64, error) {
	if i < 0 || i >= NCols(t) {
		return 0, qerr.New(qerr.RANGE, "table.ColName", "column index %d out of range [0,%d)", i, NCols(t))
	}
	sch := schemaOf(t)
	var ids []int64
	b := sch.Data()
	for off := 0; off+8 <= len(b); off += 8 {
		ids = append(ids, int64(leU64(b[off:])))
	}
	return ids[i], nil
}

// GetColIdx returns column i (not retained; the caller must Retain if it
// needs to outlive a mutation of t).
func GetColIdx(t *value.Value, i int64) (*value.Value, error) {
	if i < 0 || i >= NCols(t) {
		return nil, qerr.New(qerr.RANGE, "table.GetColIdx", "column index %d out of range [0,%d)", i, NCols(t))
	}
	return t.Children()[1+i], nil
}

// GetCol returns the column named nameID, or qerr.RANGE if no column has
// that name.
func GetCol(t *value.Value, nameID int64) (*value.Value, error) {
	n := NCols(t)
	for i := int64(0); i < n; i++ {
		id, err := ColName(t, i)
		if err != nil {
			return nil, err
		}
		if id == nameID {
			return GetColIdx(t, i)
		}
	}
	return nil, qerr.New(qerr.RANGE, "table.GetCol", "no column with name id %d", nameID)
}

// AddCol adds col under nameID, cow-ing t first to guarantee uniqueness
// before mutation (spec §4.7's add_col steps 1-5). Returns the table the
// caller must use from here on (it may differ from t if t was shared).
func AddCol(t *value.Value, nameID int64, col *value.Value) (*value.Value, error) {
	owned, err := t.COW()
	if err != nil {
		return nil, err
	}

	sch := schemaOf(owned)
	var buf [8]byte
	putLEU64(buf[:], uint64(nameID))
	newSchema, err := vector.Append(sch, buf[:])
	if err != nil {
		return nil, err
	}
	if err := owned.ReplaceChild(0, newSchema); err != nil {
		return nil, err
	}

	if err := owned.AppendChild(col); err != nil {
		return nil, err
	}
	return owned, nil
}

// NRows resolves the row count for t by consulting its first column: a
// plain vector reports its own length; PARTED_* sums segment lengths;
// MAPCOMMON sums its row_counts vector (spec §4.7 "nrows").
func NRows(t *value.Value) (int64, error) {
	if NCols(t) == 0 {
		return 0, nil
	}
	col, err := GetColIdx(t, 0)
	if err != nil {
		return 0, err
	}
	return rowsOf(col)
}

func rowsOf(col *value.Value) (int64, error) {
	switch {
	case col.Type().IsParted():
		var total int64
		for _, seg := range col.Children() {
			total += seg.Len()
		}
		return total, nil
	case col.Type() == value.MapCommon:
		children := col.Children()
		if len(children) != 2 {
			return 0, qerr.New(qerr.CORRUPT, "table.NRows", "MAPCOMMON must have exactly 2 children, got %d", len(children))
		}
		rowCounts := children[1]
		var total int64
		b := rowCounts.Data()
		for off := 0; off+8 <= len(b); off += 8 {
			total += int64(leU64(b[off:]))
		}
		return total, nil
	default:
		return col.Len(), nil
	}
}

func leU64(b []byte) uint64 {
	var u uint64
	for i := 7; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	return u
}

func putLEU64(b []byte, u uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(u)
		u >>= 8
	}
}
