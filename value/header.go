package value

import "unsafe"

// Header is the literal, size-asserted on-disk layout for a value (spec
// §3.1, §6.4 wire header). Unlike the rest of package value -- which uses
// ordinary Go pointers and slices for in-memory ownership -- the wire
// format genuinely needs a byte-exact struct, so Header is the one place
// this package keeps a C-style fixed layout, matching how lldb/falloc.go
// keeps a literal on-disk free-list-table layout even though everything
// above it is safe Go.
type Header struct {
	Nullmap [16]byte
	Type    Type
	Order   uint8
	Mmod    Mmod
	Attrs   Attrs
	RC      int32
	Len     int64
}

// HeaderSize is the fixed, wire-compatible size of Header in bytes.
const HeaderSize = 32

func init() {
	if unsafe.Sizeof(Header{}) != HeaderSize {
		panic("value: Header is not 32 bytes")
	}
}

// headerFor builds the wire Header for v (spec §6.4). It is not called
// anywhere: package colfile writes column files through its own wireHeader.
func headerFor(v *Value) Header {
	h := Header{
		Type:  v.typ,
		Mmod:  v.mmod,
		Attrs: v.attrs,
		RC:    v.rc.Load(),
		Len:   v.length,
	}
	if v.block != nil {
		h.Order = v.block.Order()
	}
	return h
}
