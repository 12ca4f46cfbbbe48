package colfile

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/qerr"
	"github.com/qdfcore/qdf/value"
)

// Codec selects optional column-payload compression (spec §4.9 core
// format plus SPEC_FULL.md's supplemented compression option). It is
// never persisted in the fixed 32-byte header; a compressed file instead
// carries one extra trailer byte, the same tag-at-the-edge convention
// falloc.go uses for its compressed blocks.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecSnappy
	CodecZstd
)

// Config tunes column-file I/O. The zero value (CodecNone) writes the
// plain, spec-exact format with no trailer byte.
type Config struct {
	Codec Codec
}

func headerSliceLen(h wireHeader) (esz int, bitmapLen int64, err error) {
	if !value.ScalarAllowlist[h.typ] {
		return 0, 0, qerr.New(qerr.CORRUPT, "colfile", "type %s is not in the column-file scalar allowlist", h.typ)
	}
	esz = value.Esz(h.typ)
	if esz == 0 {
		return 0, 0, qerr.New(qerr.CORRUPT, "colfile", "type %s has no fixed element size", h.typ)
	}
	if h.length < 0 {
		return 0, 0, qerr.New(qerr.CORRUPT, "colfile", "negative length %d", h.length)
	}
	if h.attrs&value.HasNulls != 0 && h.attrs&value.NullmapExt != 0 {
		bitmapLen = (h.length + 7) / 8
	}
	return esz, bitmapLen, nil
}

// WriteColumn writes v's header, payload, and (if present) external null
// bitmap to path (spec §6.4's wire layout). The stored header always has
// mmod=0, order=0, rc=0, and SLICE cleared regardless of v's in-memory
// state, matching §4.9's "writes must clear mmod, order, rc, SLICE".
func WriteColumn(path string, v *value.Value, cfg Config) error {
	if !value.ScalarAllowlist[v.Type()] {
		return qerr.New(qerr.TYPE, "colfile.WriteColumn", "type %s is not a scalar column type", v.Type())
	}

	wh := wireHeader{
		typ:    v.Type(),
		order:  0,
		mmod:   0,
		attrs:  v.Attrs() &^ value.SliceAttr,
		rc:     0,
		length: v.Len(),
	}

	payload := v.Data()
	var bitmap []byte
	if nm := v.Nullmap(); nm != nil {
		bitmap = nm.Data()
	}

	out := make([]byte, 0, 32+len(payload)+len(bitmap)+1)
	hb := wh.marshal()
	out = append(out, hb[:]...)

	switch cfg.Codec {
	case CodecNone:
		out = append(out, payload...)
		out = append(out, bitmap...)
	case CodecSnappy:
		out = append(out, snappy.Encode(nil, payload)...)
		out = append(out, bitmap...)
		out = append(out, byte(CodecSnappy))
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return qerr.Wrap(qerr.IO, "colfile.WriteColumn", err)
		}
		out = append(out, enc.EncodeAll(payload, nil)...)
		_ = enc.Close()
		out = append(out, bitmap...)
		out = append(out, byte(CodecZstd))
	default:
		return qerr.New(qerr.NYI, "colfile.WriteColumn", "unknown codec %d", cfg.Codec)
	}

	if err := os.WriteFile(path, out, 0o644); err != nil {
		return qerr.Wrap(qerr.IO, "colfile.WriteColumn", err)
	}
	return nil
}

// detectCodec tries the uncompressed layout first (no trailer byte); if
// the size formula (payload == len*esz) doesn't match, it reads the final
// byte as a codec tag and re-checks against the compressed layout's size
// formula. For CodecNone, payloadLen is the raw payload length, meaning
// "uncompressed, use the raw payload slice directly".
func detectCodec(rest []byte, esz int, length int64, bitmapLen int64) (codec Codec, payloadLen int64, err error) {
	plainPayload := int64(len(rest)) - bitmapLen
	if plainPayload >= 0 && plainPayload == int64(esz)*length {
		return CodecNone, plainPayload, nil
	}
	if len(rest) < 1 {
		return 0, 0, qerr.New(qerr.CORRUPT, "colfile", "file too short")
	}
	tag := Codec(rest[len(rest)-1])
	compressedLen := int64(len(rest)) - bitmapLen - 1
	if compressedLen < 0 || (tag != CodecSnappy && tag != CodecZstd) {
		return 0, 0, qerr.New(qerr.CORRUPT, "colfile", "file size does not match header")
	}
	return tag, compressedLen, nil
}

// ReadColumnCopy validates and copies a column file into a new buddy-
// backed vector (spec §4.9's "copy" read mode).
func ReadColumnCopy(h *heap.Heap, path string, cfg Config) (*value.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qerr.Wrap(qerr.IO, "colfile.ReadColumnCopy", err)
	}
	if len(data) < 32 {
		return nil, qerr.New(qerr.CORRUPT, "colfile.ReadColumnCopy", "file shorter than header: %d bytes", len(data))
	}
	wh := unmarshalHeader(data[:32])
	esz, bitmapLen, err := headerSliceLen(wh)
	if err != nil {
		return nil, err
	}

	codec, bodyLen, err := detectCodec(data[32:], esz, wh.length, bitmapLen)
	if err != nil {
		return nil, err
	}
	body := data[32 : 32+bodyLen]

	var payload []byte
	switch codec {
	case CodecNone:
		if bodyLen != int64(esz)*wh.length {
			return nil, qerr.New(qerr.CORRUPT, "colfile.ReadColumnCopy", "payload length %d != len*esz %d", bodyLen, int64(esz)*wh.length)
		}
		payload = body
	case CodecSnappy:
		payload, err = snappy.Decode(nil, body)
		if err != nil {
			return nil, qerr.Wrap(qerr.CORRUPT, "colfile.ReadColumnCopy", err)
		}
	case CodecZstd:
		dec, derr := zstd.NewReader(nil)
		if derr != nil {
			return nil, qerr.Wrap(qerr.IO, "colfile.ReadColumnCopy", derr)
		}
		payload, err = dec.DecodeAll(body, nil)
		dec.Close()
		if err != nil {
			return nil, qerr.Wrap(qerr.CORRUPT, "colfile.ReadColumnCopy", err)
		}
	}
	if int64(len(payload)) != int64(esz)*wh.length {
		return nil, qerr.New(qerr.CORRUPT, "colfile.ReadColumnCopy", "decoded payload length %d != len*esz %d", len(payload), int64(esz)*wh.length)
	}

	v, err := value.NewVector(h, wh.typ, wh.length)
	if err != nil {
		return nil, err
	}
	copy(v.Data(), payload)

	if bitmapLen > 0 {
		bitmapOff := 32 + bodyLen
		bitmapEnd := bitmapOff + bitmapLen
		if bitmapEnd > int64(len(data)) {
			v.Release()
			return nil, qerr.New(qerr.CORRUPT, "colfile.ReadColumnCopy", "file too short for null bitmap")
		}
		nm, err := value.NewVector(h, value.VecI8, bitmapLen)
		if err != nil {
			v.Release()
			return nil, err
		}
		copy(nm.Data(), data[bitmapOff:bitmapEnd])
		v.SetNullmap(nm)
		nm.Release()
	}
	return v, nil
}

// ReadColumnMapped privately (copy-on-write) maps path and returns a
// zero-copy vector view over its payload; the file itself is never written (spec §4.9's "zero-copy" mode). Only the
// uncompressed layout supports zero-copy; a compressed file returns
// qerr.NYI since decompression inherently requires a copy.
func ReadColumnMapped(path string) (*value.Value, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerr.Wrap(qerr.IO, "colfile.ReadColumnMapped", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, qerr.Wrap(qerr.IO, "colfile.ReadColumnMapped", err)
	}
	if fi.Size() < 32 {
		return nil, qerr.New(qerr.CORRUPT, "colfile.ReadColumnMapped", "file shorter than header")
	}

	m, err := mmap.Map(f, mmap.COPY, 0)
	if err != nil {
		return nil, qerr.Wrap(qerr.IO, "colfile.ReadColumnMapped", err)
	}

	wh := unmarshalHeader(m[:32])
	esz, bitmapLen, err := headerSliceLen(wh)
	if err != nil {
		m.Unmap()
		return nil, err
	}
	plainPayload := int64(len(m)) - 32 - bitmapLen
	if plainPayload != int64(esz)*wh.length {
		m.Unmap()
		return nil, qerr.New(qerr.NYI, "colfile.ReadColumnMapped", "compressed or malformed column file; use ReadColumnCopy")
	}

	payload := []byte(m)[32 : 32+plainPayload]
	v := value.NewFileVector(wh.typ, &m, payload, wh.length)

	if bitmapLen > 0 {
		bitmap := []byte(m)[32+plainPayload : 32+plainPayload+bitmapLen]
		nm := value.NewFileVector(value.VecI8, nil, bitmap, bitmapLen)
		v.SetNullmap(nm)
		nm.Release()
	}
	return v, nil
}
