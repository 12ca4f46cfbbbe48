// Package platform isolates the handful of OS-level primitives the rest of
// qdf is built on: anonymous memory reservation for buddy pools, read-only
// file mapping for zero-copy column loads, and a single OOM/IO error kind.
//
// The shapes here mirror cznic/exp/lldb's Filer abstraction (one narrow
// interface, no partial failure states) but target raw virtual memory
// instead of a file offset space.
package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapping is a live anonymous or file-backed memory region.
type Mapping struct {
	Bytes []byte
	file  bool
}

// Error is the platform layer's single failure kind: every platform
// operation either succeeds or returns an *Error wrapping the OS error.
type Error struct {
	Op    string
	Cause error
}

func (e *Error) Error() string { return fmt.Sprintf("platform: %s: %v", e.Op, e.Cause) }
func (e *Error) Unwrap() error { return e.Cause }

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Cause: err}
}

// ReserveCommit reserves and commits n bytes of anonymous, zero-filled
// memory. On Linux/BSD an anonymous private mapping is both reserved and
// committed in one step, so this package has no separate Commit call.
func ReserveCommit(n int) (*Mapping, error) {
	if n <= 0 {
		return nil, &Error{Op: "ReserveCommit", Cause: fmt.Errorf("invalid size %d", n)}
	}
	b, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, wrap("mmap", err)
	}
	return &Mapping{Bytes: b}, nil
}

// Release decommits the mapping: subsequent reads must observe zeros, but
// the call never fails the address space is later reused. We approximate
// the "decommit but keep reservation" contract with MADV_DONTNEED, which on
// Linux zero-fills the pages lazily without unmapping, and only actually
// unmap when the mapping is discarded for good via Unmap.
func (m *Mapping) Release() error {
	if len(m.Bytes) == 0 {
		return nil
	}
	return wrap("madvise(dontneed)", unix.Madvise(m.Bytes, unix.MADV_DONTNEED))
}

// Unmap tears the mapping down entirely.
func (m *Mapping) Unmap() error {
	if m.Bytes == nil {
		return nil
	}
	err := unix.Munmap(m.Bytes)
	m.Bytes = nil
	return wrap("munmap", err)
}

// AdviseSequential hints the kernel that the mapping will be read
// sequentially start-to-end (used for bulk column scans).
func (m *Mapping) AdviseSequential() error {
	return wrap("madvise(sequential)", unix.Madvise(m.Bytes, unix.MADV_SEQUENTIAL))
}

// AdviseWillNeed hints the kernel to prefault the mapping.
func (m *Mapping) AdviseWillNeed() error {
	return wrap("madvise(willneed)", unix.Madvise(m.Bytes, unix.MADV_WILLNEED))
}

// DiscardTail advises the kernel to drop pages in [off, off+len) of an
// anonymous mapping, reclaiming RSS for a free block's tail while leaving
// its head (header + freelist links) resident. Re-faulting on reuse is
// cheap, per heap_release_pages (spec §4.5 phase 5).
func (m *Mapping) DiscardTail(off, length int) error {
	if off < 0 || length <= 0 || off+length > len(m.Bytes) {
		return nil
	}
	return wrap("madvise(dontneed,tail)", unix.Madvise(m.Bytes[off:off+length], unix.MADV_DONTNEED))
}

// FileMap privately maps path read-only, copy-on-write. The file handle is
// closed once the mapping is established, matching §4.1's "file handle is
// closed after map".
func FileMap(path string) (*Mapping, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, wrap("open", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, 0, wrap("stat", err)
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{Bytes: nil, file: true}, 0, nil
	}

	b, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, 0, wrap("mmap(file)", err)
	}
	return &Mapping{Bytes: b, file: true}, size, nil
}

// PageSize returns the host's VM page size.
func PageSize() int { return os.Getpagesize() }
