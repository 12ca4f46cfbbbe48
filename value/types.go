// Package value implements the tagged value header and reference-counted,
// copy-on-write ownership discipline everything else in qdf is built on
// (spec §3, §4.4). It is the Go "redesign" of the source's self-describing
// 32-byte block header: a typed struct with a single compile-time-checked
// wire layout (Header, for column files) plus an ordinary Go struct
// (Value) carrying real pointers for in-memory ownership, instead of the
// byte-overlay tricks a C allocator needs (see DESIGN.md's Open
// Question decisions and spec §9's own suggested redesign).
package value

// Type tags every Value: atom kinds, primitive vector kinds, and the
// container kinds (LIST, TABLE, MAPCOMMON, SEL), plus the PARTED_BASE+base
// family for partitioned columns (spec §3.1).
type Type uint8

const (
	AtomBool Type = iota
	AtomI8
	AtomI16
	AtomI32
	AtomI64
	AtomF64
	AtomDate
	AtomTime
	AtomTimestamp
	AtomGUID
	AtomSym
	AtomChar
	AtomStr

	VecBool
	VecI8
	VecI16
	VecI32
	VecI64
	VecF64
	VecDate
	VecTime
	VecTimestamp
	VecGUID
	VecSym
	VecChar
	VecEnum
	VecStr

	List
	Table
	MapCommon
	Sel

	typeCount
)

// PartedBase is added to a primitive vector Type to name its partitioned
// column family (PARTED_BASE + base_type, spec §3.1).
const PartedBase Type = 128

// Parted returns the PARTED_* type for a given primitive vector base type.
func Parted(base Type) Type { return PartedBase + base }

// IsParted reports whether t names a partitioned column family.
func (t Type) IsParted() bool { return t >= PartedBase && t < PartedBase+typeCount }

// Base returns the underlying primitive vector type of a PARTED_* type; it
// panics if t is not parted, since callers are expected to check IsParted
// first (an internal-invariant condition per spec §7, not user input).
func (t Type) Base() Type {
	if !t.IsParted() {
		panic("value: Base called on non-PARTED type")
	}
	return t - PartedBase
}

func (t Type) String() string {
	names := [...]string{
		"ATOM_BOOL", "ATOM_I8", "ATOM_I16", "ATOM_I32", "ATOM_I64", "ATOM_F64",
		"ATOM_DATE", "ATOM_TIME", "ATOM_TIMESTAMP", "ATOM_GUID", "ATOM_SYM",
		"ATOM_CHAR", "ATOM_STR",
		"BOOL", "I8", "I16", "I32", "I64", "F64", "DATE", "TIME", "TIMESTAMP",
		"GUID", "SYM", "CHAR", "ENUM", "STR",
		"LIST", "TABLE", "MAPCOMMON", "SEL",
	}
	if t.IsParted() {
		return "PARTED_" + t.Base().String()
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "UNKNOWN"
}

// Attrs holds the per-value flag bits (spec §3.1).
type Attrs uint8

const (
	HasNulls Attrs = 1 << iota
	NullmapExt
	SliceAttr
)

// Mmod records the memory origin of a Value's payload (spec §3.1).
type Mmod uint8

const (
	MmodBuddy Mmod = iota
	MmodFile
	MmodDirect
)

// ScalarAllowlist lists the types permitted in a column file header (spec
// §4.9, §6.4): scalar vector kinds only, never containers or PARTED/SEL.
var ScalarAllowlist = map[Type]bool{
	VecBool: true, VecI8: true, VecChar: true, VecI16: true, VecI32: true,
	VecI64: true, VecF64: true, VecDate: true, VecTime: true,
	VecTimestamp: true, VecGUID: true, VecSym: true,
}

// Esz returns the fixed per-element byte size for a primitive vector type,
// or 0 for variable-size/container kinds (STR vectors, LIST, TABLE, ...),
// which store owned child Values instead of a flat byte payload.
func Esz(t Type) int {
	switch t {
	case VecBool, VecI8, VecChar:
		return 1
	case VecI16:
		return 2
	case VecI32, VecDate, VecTime, VecSym, VecEnum:
		return 4
	case VecI64, VecF64, VecTimestamp:
		return 8
	case VecGUID:
		return 16
	default:
		return 0
	}
}

// typeRank orders the CSV-inference widening ladder documented, not
// guessed, per spec §9(a): BOOL < I64 < F64 < STR. Any type not on the
// ladder ranks below BOOL (never chosen by Widen over a ladder type).
func typeRank(t Type) int {
	switch t {
	case VecBool:
		return 1
	case VecI64:
		return 2
	case VecF64:
		return 3
	case VecStr:
		return 4
	default:
		return 0
	}
}

// Widen returns the narrower-to-wider promotion of a and b on the
// BOOL < I64 < F64 < STR ladder; mixing any type with STR promotes to STR.
func Widen(a, b Type) Type {
	if typeRank(a) >= typeRank(b) {
		return a
	}
	return b
}
