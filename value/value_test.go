package value

import (
	"testing"
	"unsafe"

	"github.com/qdfcore/qdf/heap"
)

func TestHeaderSize(t *testing.T) {
	if unsafe.Sizeof(Header{}) != 32 {
		t.Fatalf("Header size = %d, want 32", unsafe.Sizeof(Header{}))
	}
}

func TestVectorRetainRelease(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := NewVector(h, VecI64, 8)
	if err != nil {
		t.Fatal(err)
	}
	if v.RC() != 1 {
		t.Fatalf("rc = %d, want 1", v.RC())
	}
	v.Retain()
	if v.RC() != 2 {
		t.Fatalf("rc after retain = %d, want 2", v.RC())
	}
	v.Release()
	if v.RC() != 1 {
		t.Fatalf("rc after release = %d, want 1", v.RC())
	}
	v.Release()
}

func TestCOWUniqueIsNoCopy(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := NewVector(h, VecI32, 4)
	if err != nil {
		t.Fatal(err)
	}
	cp, err := v.COW()
	if err != nil {
		t.Fatal(err)
	}
	if cp != v {
		t.Fatal("COW on a uniquely-held value should return the same pointer")
	}
	cp.Release()
}

func TestCOWSharedCopies(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := NewVector(h, VecI32, 4)
	if err != nil {
		t.Fatal(err)
	}
	copy(v.data, []byte{1, 2, 3, 4})
	shared := v.Retain()

	cp, err := v.COW()
	if err != nil {
		t.Fatal(err)
	}
	if cp == shared {
		t.Fatal("COW on a shared value must return a distinct copy")
	}
	if string(cp.data) != string(shared.data) {
		t.Fatal("COW copy must preserve payload bytes")
	}
	cp.data[0] = 9
	if shared.data[0] == 9 {
		t.Fatal("mutating the COW copy must not affect the original")
	}
	cp.Release()
	shared.Release()
}

func TestContainerOwnsChildren(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	col, err := NewVector(h, VecI64, 2)
	if err != nil {
		t.Fatal(err)
	}
	tbl, err := NewContainer(Table, []*Value{col})
	if err != nil {
		t.Fatal(err)
	}
	if col.RC() != 2 {
		t.Fatalf("child rc after install = %d, want 2", col.RC())
	}
	tbl.Release()
	if col.RC() != 1 {
		t.Fatalf("child rc after container release = %d, want 1", col.RC())
	}
	col.Release()
}

func TestAtomStrSSO(t *testing.T) {
	v, err := NewAtomStr(nil, "short")
	if err != nil {
		t.Fatal(err)
	}
	s, err := v.Str()
	if err != nil {
		t.Fatal(err)
	}
	if s != "short" {
		t.Fatalf("Str() = %q, want %q", s, "short")
	}
}

func TestAtomStrSpilled(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	long := "this string is definitely longer than seven bytes"
	v, err := NewAtomStr(h, long)
	if err != nil {
		t.Fatal(err)
	}
	s, err := v.Str()
	if err != nil {
		t.Fatal(err)
	}
	if s != long {
		t.Fatalf("Str() = %q, want %q", s, long)
	}
	v.Release()
}

func TestWiden(t *testing.T) {
	if Widen(VecBool, VecI64) != VecI64 {
		t.Fatal("BOOL widened with I64 should be I64")
	}
	if Widen(VecI64, VecF64) != VecF64 {
		t.Fatal("I64 widened with F64 should be F64")
	}
	if Widen(VecF64, VecStr) != VecStr {
		t.Fatal("anything widened with STR should be STR")
	}
}
