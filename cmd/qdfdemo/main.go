// Command qdfdemo builds a small table, round-trips it through the
// splayed column-file format, and reports what came back. It exists to
// exercise the heap/value/vector/table/colfile/symtab stack end to end
// the way cznic/exp/lldb's lab/1 and db_bench commands drive an
// Allocator by hand.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/qdfcore/qdf/colfile"
	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/symtab"
	"github.com/qdfcore/qdf/table"
	"github.com/qdfcore/qdf/value"
	"github.com/qdfcore/qdf/vector"
)

var (
	dir  = flag.String("dir", "", "splay directory to write (defaults to a temp dir)")
	rows = flag.Int("rows", 5, "rows per column")
)

func main() {
	flag.Parse()

	out := *dir
	if out == "" {
		d, err := os.MkdirTemp("", "qdfdemo")
		if err != nil {
			log.Fatal(err)
		}
		defer os.RemoveAll(d)
		out = d
	}

	h := heap.New(heap.DefaultConfig(), nil)
	names := symtab.New()

	tbl, err := table.New(h)
	if err != nil {
		log.Fatal(err)
	}

	price, err := vector.New(h, value.VecF64, int64(*rows))
	if err != nil {
		log.Fatal(err)
	}
	for i := 0; i < *rows; i++ {
		putF64(price.Data(), i, float64(i)*1.5)
	}
	tbl, err = table.AddCol(tbl, int64(names.Intern("price")), price)
	price.Release()
	if err != nil {
		log.Fatal(err)
	}

	volume, err := vector.New(h, value.VecI64, int64(*rows))
	if err != nil {
		log.Fatal(err)
	}
	for i := 0; i < *rows; i++ {
		putI64(volume.Data(), i, int64(i*100))
	}
	tbl, err = table.AddCol(tbl, int64(names.Intern("volume")), volume)
	volume.Release()
	if err != nil {
		log.Fatal(err)
	}

	if err := colfile.SaveSplay(out, tbl, names, colfile.Config{}); err != nil {
		log.Fatal(err)
	}
	tbl.Release()

	loaded, err := colfile.LoadSplay(h, out, names, colfile.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer loaded.Release()

	nrows, err := table.NRows(loaded)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s: %d cols, %d rows\n", out, table.NCols(loaded), nrows)
}

func putF64(b []byte, i int, v float64) {
	putU64(b, i, math.Float64bits(v))
}

func putI64(b []byte, i int, v int64) {
	putU64(b, i, uint64(v))
}

func putU64(b []byte, i int, u uint64) {
	off := i * 8
	for j := 0; j < 8; j++ {
		b[off+j] = byte(u >> (8 * j))
	}
}
