package value

import (
	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
)

// ssoCap is the number of bytes an ATOM_STR can hold inline before it
// needs a heap-backed byte vector for its payload (spec §3.1's small-
// string optimization note).
const ssoCap = 7

// NewAtomStr builds an ATOM_STR value, inlining s if it fits in the
// 7-byte SSO slot and otherwise backing it with a heap-allocated byte
// vector referenced via strPayload.
func NewAtomStr(h *heap.Heap, s string) (*Value, error) {
	v := &Value{typ: AtomStr}
	v.rc.Store(1)
	if len(s) <= ssoCap {
		copy(v.sso[:], s)
		v.ssoLen = int8(len(s))
		v.length = int64(len(s))
		return v, nil
	}
	payload, err := NewVector(h, VecI8, int64(len(s)))
	if err != nil {
		return nil, err
	}
	copy(payload.data, s)
	v.strPayload = payload
	v.ssoLen = -1
	v.length = int64(len(s))
	return v, nil
}

// Str returns an ATOM_STR's string contents, from the inline SSO slot or
// the backing payload vector.
func (v *Value) Str() (string, error) {
	if v.typ != AtomStr {
		return "", qerr.New(qerr.TYPE, "value.Str", "not ATOM_STR: %s", v.typ)
	}
	if v.ssoLen >= 0 {
		return string(v.sso[:v.ssoLen]), nil
	}
	return string(v.strPayload.data), nil
}

// NewAtomGUID builds an ATOM_GUID value from 16 raw bytes.
func NewAtomGUID(b [16]byte) *Value {
	v := &Value{typ: AtomGUID, length: 16}
	v.rc.Store(1)
	copy(v.sso[:], b[:ssoCap])
	// All 16 bytes live in data (the first 7 are also copied into sso);
	// GUID atoms are small enough to keep in an ordinary Go byte slice
	// instead of reaching for a heap allocation for 16 bytes.
	v.data = append([]byte(nil), b[:]...)
	return v
}

// GUID returns an ATOM_GUID's 16 raw bytes.
func (v *Value) GUID() ([16]byte, error) {
	var out [16]byte
	if v.typ != AtomGUID {
		return out, qerr.New(qerr.TYPE, "value.GUID", "not ATOM_GUID: %s", v.typ)
	}
	copy(out[:], v.data)
	return out, nil
}
