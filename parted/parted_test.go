package parted

import (
	"testing"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/value"
	"github.com/qdfcore/qdf/vector"
)

func TestNRowsSumsSegments(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	lens := []int64{3, 0, 5}
	segs := make([]*value.Value, 0, len(lens))
	for _, l := range lens {
		v, err := vector.New(h, value.VecI64, l)
		if err != nil {
			t.Fatal(err)
		}
		segs = append(segs, v)
	}

	p, err := New(value.VecI64, segs)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range segs {
		s.Release()
	}

	n, err := NRows(p)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 {
		t.Fatalf("nrows = %d, want 8", n)
	}
	p.Release()
}

func TestMapCommonRowCounts(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	keys, _ := vector.New(h, value.VecI64, 2)
	counts, _ := vector.New(h, value.VecI64, 2)
	putLE := func(b []byte, u uint64) {
		for i := 0; i < 8; i++ {
			b[i] = byte(u)
			u >>= 8
		}
	}
	putLE(counts.Data()[0:8], 4)
	putLE(counts.Data()[8:16], 6)

	m, err := NewMapCommon(keys, counts, KeyInt)
	if err != nil {
		t.Fatal(err)
	}
	keys.Release()
	counts.Release()

	kt, err := KeyTypeOf(m)
	if err != nil {
		t.Fatal(err)
	}
	if kt != KeyInt {
		t.Fatalf("key type = %v, want KeyInt", kt)
	}
	n, err := NRowsMapCommon(m)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("nrows = %d, want 10", n)
	}
	m.Release()
}
