package colfile

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/parted"
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/value"
)

// SavePartitioned writes a partitioned dataset: root/sym (raw symbol-table
// bytes, caller-supplied) plus root/<part>/T/ per partition, each holding
// a splayed table (spec §6.4's "root/sym plus root/<part>/T/").
// partitions maps a partition directory name (already formatted per its
// key type: YYYY.MM.DD, a signed integer, or a symbol) to the table for
// that partition.
func SavePartitioned(root string, symBytes []byte, partitions map[string]*value.Value, names NameResolver, cfg Config) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return qerr.Wrap(qerr.IO, "colfile.SavePartitioned", err)
	}
	if err := os.WriteFile(filepath.Join(root, "sym"), symBytes, 0o644); err != nil {
		return qerr.Wrap(qerr.IO, "colfile.SavePartitioned", err)
	}
	for part, tbl := range partitions {
		if err := ValidateName(part); err != nil {
			return err
		}
		dir := filepath.Join(root, part, "T")
		if err := ValidatePath(dir); err != nil {
			return err
		}
		if err := SaveSplay(dir, tbl, names, cfg); err != nil {
			return err
		}
	}
	return nil
}

// LoadPartitioned reads root/sym and every partition directory under root
// (the "sym" file is skipped as a non-directory), returning the raw symbol
// bytes and a map from partition directory name to its splayed table. It
// does not build PARTED_* columns and does not infer partition key types.
func LoadPartitioned(h *heap.Heap, root string, names NameResolver, cfg Config) (symBytes []byte, tables map[string]*value.Value, err error) {
	symBytes, err = os.ReadFile(filepath.Join(root, "sym"))
	if err != nil {
		return nil, nil, qerr.Wrap(qerr.IO, "colfile.LoadPartitioned", err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, nil, qerr.Wrap(qerr.IO, "colfile.LoadPartitioned", err)
	}
	tables = make(map[string]*value.Value)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		part := e.Name()
		tbl, err := LoadSplay(h, filepath.Join(root, part, "T"), names, cfg)
		if err != nil {
			for _, t := range tables {
				t.Release()
			}
			return nil, nil, err
		}
		tables[part] = tbl
	}
	return symBytes, tables, nil
}

// InferPartitionKeyType classifies a partition directory name as a date
// (YYYY.MM.DD), a signed integer, or a symbol -- in that preference order
// (spec §6.4's "<part> being either YYYY.MM.DD, a signed integer, or a
// symbol").
func InferPartitionKeyType(name string) parted.KeyType {
	if _, err := time.Parse("2006.01.02", name); err == nil {
		return parted.KeyDate
	}
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return parted.KeyInt
	}
	return parted.KeySym
}
