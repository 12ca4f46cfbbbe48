package vector

import (
	"encoding/binary"
	"testing"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/value"
)

func TestAppendGrowsAndPreservesData(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := New(h, value.VecI64, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := int64(0); i < 100; i++ {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(i))
		v, err = Append(v, buf)
		if err != nil {
			t.Fatal(err)
		}
	}
	if v.Len() != 100 {
		t.Fatalf("len = %d, want 100", v.Len())
	}
	for i := int64(0); i < 100; i++ {
		got := binary.LittleEndian.Uint64(v.Data()[i*8 : i*8+8])
		if got != uint64(i) {
			t.Fatalf("element %d = %d, want %d", i, got, i)
		}
	}
	v.Release()
}

func TestConcat(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	a, _ := New(h, value.VecI32, 2)
	b, _ := New(h, value.VecI32, 3)
	copy(a.Data(), []byte{1, 0, 0, 0, 2, 0, 0, 0})
	copy(b.Data(), []byte{3, 0, 0, 0, 4, 0, 0, 0, 5, 0, 0, 0})

	c, err := Concat(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 5 {
		t.Fatalf("len = %d, want 5", c.Len())
	}
	a.Release()
	b.Release()
	c.Release()
}

func TestSliceIsZeroCopy(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, _ := New(h, value.VecI8, 10)
	for i := range v.Data() {
		v.Data()[i] = byte(i)
	}
	s, err := Slice(v, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 4 {
		t.Fatalf("len = %d, want 4", s.Len())
	}
	if s.Data()[0] != 2 {
		t.Fatalf("slice data[0] = %d, want 2", s.Data()[0])
	}
	v.Data()[2] = 99
	if s.Data()[0] != 99 {
		t.Fatal("slice should be a zero-copy view into v's data")
	}
	s.Release()
	v.Release()
}

func TestSliceOutOfBounds(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, _ := New(h, value.VecI8, 4)
	if _, err := Slice(v, 2, 10); err == nil {
		t.Fatal("expected out-of-bounds slice to fail")
	}
	v.Release()
}

func TestAppendRejectsSlice(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, _ := New(h, value.VecI8, 4)
	s, err := Slice(v, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Append(s, []byte{1}); err == nil {
		t.Fatal("expected append on a slice view to fail")
	}
	s.Release()
	v.Release()
}
