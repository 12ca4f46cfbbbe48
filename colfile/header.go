package colfile

import "github.com/qdfcore/qdf/value"

// wireHeader is the 32-byte on-disk layout (spec §6.4): identical field
// order to value.Header, packed little-endian regardless of host, same
// pragmatic choice teacher-style code makes when it owns both ends of a
// format instead of depending on host byte order.
type wireHeader struct {
	nullmap [16]byte
	typ     value.Type
	order   uint8
	mmod    value.Mmod
	attrs   value.Attrs
	rc      int32
	length  int64
}

func (h wireHeader) marshal() [32]byte {
	var b [32]byte
	copy(b[0:16], h.nullmap[:])
	b[16] = byte(h.typ)
	b[17] = h.order
	b[18] = byte(h.mmod)
	b[19] = byte(h.attrs)
	putI32(b[20:24], h.rc)
	putI64(b[24:32], h.length)
	return b
}

func unmarshalHeader(b []byte) wireHeader {
	var h wireHeader
	copy(h.nullmap[:], b[0:16])
	h.typ = value.Type(b[16])
	h.order = b[17]
	h.mmod = value.Mmod(b[18])
	h.attrs = value.Attrs(b[19])
	h.rc = getI32(b[20:24])
	h.length = getI64(b[24:32])
	return h
}

func putI32(b []byte, v int32) {
	u := uint32(v)
	for i := 0; i < 4; i++ {
		b[i] = byte(u)
		u >>= 8
	}
}

func getI32(b []byte) int32 {
	var u uint32
	for i := 3; i >= 0; i-- {
		u = u<<8 | uint32(b[i])
	}
	return int32(u)
}

func putI64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u)
		u >>= 8
	}
}

func getI64(b []byte) int64 {
	var u uint64
	for i := 7; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	return int64(u)
}
