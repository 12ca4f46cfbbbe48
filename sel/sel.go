// Package sel implements the bitpacked selection mask (spec §3.2, §4.8):
// a per-row pass/fail bitmap segmented into MORSEL-sized chunks, each
// carrying a cached popcount and a NONE/MIX/ALL flag so downstream
// operators can skip whole segments.
package sel

import (
	"math/bits"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/value"
)

// Morsel is the row count of one selection-mask segment.
const Morsel = 1024

// Flag classifies a segment's selectivity.
type Flag uint8

const (
	None Flag = iota
	Mix
	All
)

const metaSize = 16 // {nrows int64, total_pass int64}

func ceil8(n int64) int64 { return (n + 7) &^ 7 }

func nSegs(nrows int64) int64 {
	if nrows == 0 {
		return 0
	}
	return (nrows + Morsel - 1) / Morsel
}

func layout(nrows int64) (segFlagsOff, segPopcntOff, bitsOff, total int64) {
	ns := nSegs(nrows)
	segFlagsOff = metaSize
	segPopcntOff = segFlagsOff + ceil8(ns)
	bitsOff = segPopcntOff + ceil8(2*ns)
	nWords := (nrows + 63) / 64
	total = bitsOff + 8*nWords
	return
}

// New allocates a zeroed selection mask for nrows rows: total_pass = 0,
// every segment flag NONE (spec §4.8's sel_new).
func New(h *heap.Heap, nrows int64) (*value.Value, error) {
	if nrows < 0 {
		return nil, qerr.New(qerr.RANGE, "sel.New", "negative nrows %d", nrows)
	}
	_, _, _, total := layout(nrows)
	v, err := value.NewVector(h, value.VecI8, total)
	if err != nil {
		return nil, err
	}
	putI64(v.Data()[0:8], nrows)
	return v, nil
}

func checkSel(v *value.Value) error {
	if v.Type() != value.VecI8 {
		return qerr.New(qerr.TYPE, "sel", "not a selection mask value")
	}
	return nil
}

// NRows returns the row count a selection mask was built for.
func NRows(v *value.Value) int64 { return getI64(v.Data()[0:8]) }

// TotalPass returns the cached total number of passing rows.
func TotalPass(v *value.Value) int64 { return getI64(v.Data()[8:16]) }

func segFlagsBytes(v *value.Value) []byte {
	nrows := NRows(v)
	off, end, _, _ := layout(nrows)
	return v.Data()[off:end]
}

func segPopcntBytes(v *value.Value) []byte {
	nrows := NRows(v)
	_, off, end, _ := layout(nrows)
	return v.Data()[off:end]
}

func bitsWords(v *value.Value) []byte {
	nrows := NRows(v)
	_, _, off, total := layout(nrows)
	return v.Data()[off:total]
}

// SegFlag returns segment i's NONE/MIX/ALL flag.
func SegFlag(v *value.Value, i int64) Flag {
	return Flag(segFlagsBytes(v)[i])
}

// Popcnt returns segment i's cached popcount.
func Popcnt(v *value.Value, i int64) uint16 {
	b := segPopcntBytes(v)
	return uint16(b[2*i]) | uint16(b[2*i+1])<<8
}

// Bit returns row i's pass/fail bit.
func Bit(v *value.Value, i int64) bool {
	words := bitsWords(v)
	word := getU64(words[i/64*8 : i/64*8+8])
	return word&(uint64(1)<<uint(i%64)) != 0
}

func setBit(words []byte, i int64, on bool) {
	off := i / 64 * 8
	w := getU64(words[off : off+8])
	if on {
		w |= uint64(1) << uint(i%64)
	} else {
		w &^= uint64(1) << uint(i%64)
	}
	putU64(words[off:off+8], w)
}

// FromPred packs a BOOL vector's byte-per-row predicate into the mask's
// bitmap and recomputes per-segment state (spec §4.8's sel_from_pred).
func FromPred(h *heap.Heap, pred *value.Value) (*value.Value, error) {
	if pred.Type() != value.VecBool {
		return nil, qerr.New(qerr.TYPE, "sel.FromPred", "predicate must be VecBool, got %s", pred.Type())
	}
	s, err := New(h, pred.Len())
	if err != nil {
		return nil, err
	}
	words := bitsWords(s)
	data := pred.Data()
	for i, b := range data {
		if b != 0 {
			setBit(words, int64(i), true)
		}
	}
	Recompute(s)
	return s, nil
}

// And computes the bitwise AND of two equal-length masks into a new mask,
// then recomputes segment state (spec §4.8's sel_and).
func And(a, b *value.Value) (*value.Value, error) {
	if NRows(a) != NRows(b) {
		return nil, qerr.New(qerr.RANGE, "sel.And", "mismatched row counts %d and %d", NRows(a), NRows(b))
	}
	out, err := New(a.Heap(), NRows(a))
	if err != nil {
		return nil, err
	}
	aw, bw, ow := bitsWords(a), bitsWords(b), bitsWords(out)
	for i := range ow {
		ow[i] = aw[i] & bw[i]
	}
	Recompute(out)
	return out, nil
}

// Recompute masks the trailing partial word against nrows&63, then
// recounts every segment's popcount, flag, and the overall total_pass
// (spec §4.8's sel_recompute).
func Recompute(v *value.Value) {
	nrows := NRows(v)
	words := bitsWords(v)
	nWords := (nrows + 63) / 64
	if nrows%64 != 0 && nWords > 0 {
		last := (nWords - 1) * 8
		w := getU64(words[last : last+8])
		validBits := uint(nrows % 64)
		w &= (uint64(1) << validBits) - 1
		putU64(words[last:last+8], w)
	}

	ns := nSegs(nrows)
	flags := segFlagsBytes(v)
	popcnts := segPopcntBytes(v)
	var total int64

	for seg := int64(0); seg < ns; seg++ {
		segLen := int64(Morsel)
		if rem := nrows - seg*Morsel; rem < Morsel {
			segLen = rem
		}
		firstWord := seg * Morsel / 64
		lastWord := (seg*Morsel + segLen - 1) / 64
		var cnt int64
		for w := firstWord; w <= lastWord; w++ {
			word := getU64(words[w*8 : w*8+8])
			cnt += int64(bits.OnesCount64(word))
		}
		flags[seg] = byte(flagFor(cnt, segLen))
		popcnts[2*seg] = byte(cnt)
		popcnts[2*seg+1] = byte(cnt >> 8)
		total += cnt
	}
	putI64(v.Data()[8:16], total)
}

func flagFor(cnt, segLen int64) Flag {
	switch {
	case cnt == 0:
		return None
	case cnt == segLen:
		return All
	default:
		return Mix
	}
}

func getI64(b []byte) int64 { return int64(getU64(b)) }
func putI64(b []byte, v int64) { putU64(b, uint64(v)) }

func getU64(b []byte) uint64 {
	var u uint64
	for i := 7; i >= 0; i-- {
		u = u<<8 | uint64(b[i])
	}
	return u
}

func putU64(b []byte, u uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(u)
		u >>= 8
	}
}
