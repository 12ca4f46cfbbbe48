// Package parted implements the PARTED_* segment-of-vectors column type
// and its MAPCOMMON row-count companion (spec §3.2). A PARTED_* value owns
// one vector segment per partition; nrows sums segment lengths. MAPCOMMON
// pairs a key vector (partition keys, typed per attrs' low bits) with a
// parallel row_counts vector, used where the segments themselves are not
// resident (e.g. a partitioned dataset directory scan that only read
// counts, not data).
package parted

import (
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/value"
)

// KeyType bits occupy the low two bits of a MAPCOMMON value's Attrs (spec
// §6.4's "inferred key type is stored in the MAPCOMMON attrs").
type KeyType uint8

const (
	KeyDate KeyType = iota
	KeyInt
	KeySym
)

const keyTypeMask = value.Attrs(0x3)

func (k KeyType) String() string {
	switch k {
	case KeyDate:
		return "KeyDate"
	case KeyInt:
		return "KeyInt"
	case KeySym:
		return "KeySym"
	default:
		return "KeyUnknown"
	}
}

// New builds a PARTED_* value of the given base primitive type, owning
// segs as its children (spec §3.2). Each segment is retained.
func New(base value.Type, segs []*value.Value) (*value.Value, error) {
	for _, s := range segs {
		if s.Type() != base {
			return nil, qerr.New(qerr.TYPE, "parted.New", "segment type %s does not match base %s", s.Type(), base)
		}
	}
	return value.NewContainer(value.Parted(base), segs)
}

// NRows sums every segment's length (spec §4.7's "nrows ... sums segment
// lengths", B5's testable property).
func NRows(p *value.Value) (int64, error) {
	if !p.Type().IsParted() {
		return 0, qerr.New(qerr.TYPE, "parted.NRows", "not a PARTED_* value: %s", p.Type())
	}
	var total int64
	for _, s := range p.Children() {
		total += s.Len()
	}
	return total, nil
}

// NSegs returns the number of segments in p.
func NSegs(p *value.Value) int64 { return int64(len(p.Children())) }

// Segment returns segment i.
func Segment(p *value.Value, i int64) (*value.Value, error) {
	if i < 0 || i >= NSegs(p) {
		return nil, qerr.New(qerr.RANGE, "parted.Segment", "segment index %d out of range [0,%d)", i, NSegs(p))
	}
	return p.Children()[i], nil
}

// NewMapCommon builds a MAPCOMMON value pairing keyValues with rowCounts
// (both retained as owned children) and records kt in the low attrs bits.
func NewMapCommon(keyValues, rowCounts *value.Value, kt KeyType) (*value.Value, error) {
	if keyValues.Len() != rowCounts.Len() {
		return nil, qerr.New(qerr.RANGE, "parted.NewMapCommon", "key_values len %d != row_counts len %d", keyValues.Len(), rowCounts.Len())
	}
	m, err := value.NewContainer(value.MapCommon, []*value.Value{keyValues, rowCounts})
	if err != nil {
		return nil, err
	}
	m.SetAttrs((m.Attrs() &^ keyTypeMask) | value.Attrs(kt)&keyTypeMask)
	return m, nil
}

// KeyTypeOf returns the key type recorded in a MAPCOMMON value's attrs.
func KeyTypeOf(m *value.Value) (KeyType, error) {
	if m.Type() != value.MapCommon {
		return 0, qerr.New(qerr.TYPE, "parted.KeyTypeOf", "not MAPCOMMON: %s", m.Type())
	}
	return KeyType(m.Attrs() & keyTypeMask), nil
}

// KeyValues returns a MAPCOMMON value's key vector.
func KeyValues(m *value.Value) (*value.Value, error) {
	if m.Type() != value.MapCommon {
		return nil, qerr.New(qerr.TYPE, "parted.KeyValues", "not MAPCOMMON: %s", m.Type())
	}
	return m.Children()[0], nil
}

// RowCounts returns a MAPCOMMON value's row_counts vector.
func RowCounts(m *value.Value) (*value.Value, error) {
	if m.Type() != value.MapCommon {
		return nil, qerr.New(qerr.TYPE, "parted.RowCounts", "not MAPCOMMON: %s", m.Type())
	}
	return m.Children()[1], nil
}

// NRowsMapCommon sums a MAPCOMMON value's row_counts vector.
func NRowsMapCommon(m *value.Value) (int64, error) {
	rc, err := RowCounts(m)
	if err != nil {
		return 0, err
	}
	var total int64
	b := rc.Data()
	for off := 0; off+8 <= len(b); off += 8 {
		var u uint64
		for i := 7; i >= 0; i-- {
			u = u<<8 | uint64(b[off+i])
		}
		total += int64(u)
	}
	return total, nil
}
