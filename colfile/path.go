// Package colfile implements the column-file wire framing (spec §4.9),
// splayed-table and partitioned-dataset directory I/O (§6.4, supplemented
// per SPEC_FULL.md), and path validation (§6.5).
package colfile

import (
	"strings"

	"github.com/qdfcore/qdf/qerr"
)

// PathLenCap bounds any composed on-disk path (spec §6.5's "~1 KiB").
const PathLenCap = 1024

// ValidateName checks a column or partition name component: non-empty, no
// path separators or NUL, no leading dot, no ".." substring (spec §6.5).
func ValidateName(name string) error {
	if name == "" {
		return qerr.New(qerr.RANGE, "colfile.ValidateName", "empty name")
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return qerr.New(qerr.RANGE, "colfile.ValidateName", "name %q contains a path separator or NUL", name)
	}
	if strings.HasPrefix(name, ".") {
		return qerr.New(qerr.RANGE, "colfile.ValidateName", "name %q has a leading dot", name)
	}
	if strings.Contains(name, "..") {
		return qerr.New(qerr.RANGE, "colfile.ValidateName", "name %q contains '..'", name)
	}
	return nil
}

// ValidatePath checks a fully composed path against the length cap.
func ValidatePath(path string) error {
	if len(path) > PathLenCap {
		return qerr.New(qerr.RANGE, "colfile.ValidatePath", "path length %d exceeds cap %d", len(path), PathLenCap)
	}
	return nil
}
