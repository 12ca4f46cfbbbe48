package colfile

import (
	"path/filepath"
	"testing"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/symtab"
	"github.com/qdfcore/qdf/table"
	"github.com/qdfcore/qdf/value"
	"github.com/qdfcore/qdf/vector"
)

func buildTable(t *testing.T, h *heap.Heap, names *symtab.Table) *value.Value {
	t.Helper()
	tbl, err := table.New(h)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := vector.New(h, value.VecI64, 3)
	copy(a.Data(), []byte{1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0})
	tbl, err = table.AddCol(tbl, int64(names.Intern("a")), a)
	if err != nil {
		t.Fatal(err)
	}
	a.Release()

	b, _ := vector.New(h, value.VecI64, 3)
	copy(b.Data(), []byte{4, 0, 0, 0, 0, 0, 0, 0, 5, 0, 0, 0, 0, 0, 0, 0, 6, 0, 0, 0, 0, 0, 0, 0})
	tbl, err = table.AddCol(tbl, int64(names.Intern("b")), b)
	if err != nil {
		t.Fatal(err)
	}
	b.Release()
	return tbl
}

func TestSaveLoadSplay(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	names := symtab.New()
	tbl := buildTable(t, h, names)

	dir := filepath.Join(t.TempDir(), "T")
	if err := SaveSplay(dir, tbl, names, Config{}); err != nil {
		t.Fatal(err)
	}
	tbl.Release()

	loaded, err := LoadSplay(h, dir, names, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if table.NCols(loaded) != 2 {
		t.Fatalf("ncols = %d, want 2", table.NCols(loaded))
	}
	nrows, err := table.NRows(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if nrows != 3 {
		t.Fatalf("nrows = %d, want 3", nrows)
	}
	loaded.Release()
}

func TestInferPartitionKeyType(t *testing.T) {
	if got := InferPartitionKeyType("2024.01.15"); got.String() != "KeyDate" {
		t.Fatalf("date inference = %v", got)
	}
	if got := InferPartitionKeyType("42"); got.String() != "KeyInt" {
		t.Fatalf("int inference = %v", got)
	}
	if got := InferPartitionKeyType("AAPL"); got.String() != "KeySym" {
		t.Fatalf("symbol inference = %v", got)
	}
}
