package sel

import (
	"testing"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/value"
)

func TestRecomputeAfterDirectBitWrite(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	s, err := New(h, 1025)
	if err != nil {
		t.Fatal(err)
	}
	words := bitsWords(s)
	setBit(words, 1024, true)
	Recompute(s)

	if TotalPass(s) != 1 {
		t.Fatalf("total_pass = %d, want 1", TotalPass(s))
	}
	if SegFlag(s, 0) != None {
		t.Fatalf("seg 0 flag = %v, want None", SegFlag(s, 0))
	}
	if SegFlag(s, 1) != All {
		t.Fatalf("seg 1 flag = %v, want All (1 row, 1 bit set)", SegFlag(s, 1))
	}
	if Popcnt(s, 0) != 0 {
		t.Fatalf("seg 0 popcnt = %d, want 0", Popcnt(s, 0))
	}
	if Popcnt(s, 1) != 1 {
		t.Fatalf("seg 1 popcnt = %d, want 1", Popcnt(s, 1))
	}
	s.Release()
}

func TestFromPredAndAnd(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	pred, err := value.NewVector(h, value.VecBool, 4)
	if err != nil {
		t.Fatal(err)
	}
	copy(pred.Data(), []byte{1, 0, 1, 1})

	s, err := FromPred(h, pred)
	if err != nil {
		t.Fatal(err)
	}
	if TotalPass(s) != 3 {
		t.Fatalf("total_pass = %d, want 3", TotalPass(s))
	}

	pred2, _ := value.NewVector(h, value.VecBool, 4)
	copy(pred2.Data(), []byte{1, 1, 0, 1})
	s2, err := FromPred(h, pred2)
	if err != nil {
		t.Fatal(err)
	}

	and, err := And(s, s2)
	if err != nil {
		t.Fatal(err)
	}
	if !Bit(and, 0) || Bit(and, 1) || Bit(and, 2) || !Bit(and, 3) {
		t.Fatal("AND result bits incorrect")
	}
	if TotalPass(and) != 2 {
		t.Fatalf("total_pass = %d, want 2", TotalPass(and))
	}

	pred.Release()
	pred2.Release()
	s.Release()
	s2.Release()
	and.Release()
}
