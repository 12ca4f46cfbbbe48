package colfile

import (
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"go.uber.org/zap"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/table"
	"github.com/qdfcore/qdf/value"
)

// Writer pairs a column-file Config with an optional structured logger
// (nil means zap.NewNop()). SaveSplay, LoadSplay, SavePartitioned and
// LoadPartitioned are package functions that take a Config directly; they
// do not go through a Writer and do not log.
type Writer struct {
	Config Config
	Log    *zap.Logger
}

func (w Writer) log() *zap.Logger {
	if w.Log == nil {
		return zap.NewNop()
	}
	return w.Log
}

// NameResolver maps a column's name id to its name (typically backed by
// symtab.Str(nameID)), so the splay functions never hard-code an interning
// strategy. It resolves ids to names only, not names back to ids.
type NameResolver interface {
	NameOf(nameID int64) (string, error)
}

// SaveSplay writes a splayed table directory: dir/.d (an I64 vector of
// column name ids) and dir/<name> per column (spec §6.4's supplemented
// splayed-table layout). Columns are written in parallel via errgroup,
// mirroring the morsel-parallel execution model the core is built for.
func SaveSplay(dir string, t *value.Value, names NameResolver, cfg Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return qerr.Wrap(qerr.IO, "colfile.SaveSplay", err)
	}

	n := table.NCols(t)
	dotD := make([]byte, 8*n)
	colNames := make([]string, n)
	for i := int64(0); i < n; i++ {
		id, err := table.ColName(t, i)
		if err != nil {
			return err
		}
		putI64(dotD[i*8:i*8+8], id)
		name, err := names.NameOf(id)
		if err != nil {
			return err
		}
		if err := ValidateName(name); err != nil {
			return err
		}
		colNames[i] = name
	}
	if err := os.WriteFile(filepath.Join(dir, ".d"), append(dotDHeader(n), dotD...), 0o644); err != nil {
		return qerr.Wrap(qerr.IO, "colfile.SaveSplay", err)
	}

	var g errgroup.Group
	for i := int64(0); i < n; i++ {
		i := i
		g.Go(func() error {
			col, err := table.GetColIdx(t, i)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, colNames[i])
			if err := ValidatePath(path); err != nil {
				return err
			}
			return WriteColumn(path, col, cfg)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return nil
}

func dotDHeader(n int64) []byte {
	wh := wireHeader{typ: value.VecI64, length: n}
	hb := wh.marshal()
	return hb[:]
}

// LoadSplay reads a splayed table directory back into a table value,
// resolving each column's name id to a file name via names.
func LoadSplay(h *heap.Heap, dir string, names NameResolver, cfg Config) (*value.Value, error) {
	dotD, err := os.ReadFile(filepath.Join(dir, ".d"))
	if err != nil {
		return nil, qerr.Wrap(qerr.IO, "colfile.LoadSplay", err)
	}
	if len(dotD) < 32 {
		return nil, qerr.New(qerr.CORRUPT, "colfile.LoadSplay", ".d file shorter than header")
	}
	wh := unmarshalHeader(dotD[:32])
	if wh.typ != value.VecI64 {
		return nil, qerr.New(qerr.CORRUPT, "colfile.LoadSplay", ".d schema vector must be I64, got %s", wh.typ)
	}
	n := wh.length
	ids := make([]int64, n)
	for i := int64(0); i < n; i++ {
		ids[i] = getI64(dotD[32+i*8 : 32+i*8+8])
	}

	t, err := table.New(h)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		name, err := names.NameOf(id)
		if err != nil {
			t.Release()
			return nil, err
		}
		col, err := ReadColumnCopy(h, filepath.Join(dir, name), cfg)
		if err != nil {
			t.Release()
			return nil, err
		}
		t, err = table.AddCol(t, id, col)
		col.Release()
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}
