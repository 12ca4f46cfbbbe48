package colfile

import (
	"path/filepath"
	"testing"

	"github.com/qdfcore/qdf/heap"
	"github.com/qdfcore/qdf/value"
)

func TestWriteReadCopyRoundTrip(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := value.NewVector(h, value.VecI64, 4)
	if err != nil {
		t.Fatal(err)
	}
	copy(v.Data(), []byte{1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0})

	path := filepath.Join(t.TempDir(), "col")
	if err := WriteColumn(path, v, Config{}); err != nil {
		t.Fatal(err)
	}
	v.Release()

	got, err := ReadColumnCopy(h, path, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Len() != 4 {
		t.Fatalf("len = %d, want 4", got.Len())
	}
	if string(got.Data()) != string([]byte{1, 0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0}) {
		t.Fatal("round-tripped payload mismatch")
	}
	got.Release()
}

func TestWriteReadCompressedRoundTrip(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := value.NewVector(h, value.VecI32, 8)
	if err != nil {
		t.Fatal(err)
	}
	for i := range v.Data() {
		v.Data()[i] = byte(i)
	}

	path := filepath.Join(t.TempDir(), "col.snappy")
	if err := WriteColumn(path, v, Config{Codec: CodecSnappy}); err != nil {
		t.Fatal(err)
	}
	orig := append([]byte(nil), v.Data()...)
	v.Release()

	got, err := ReadColumnCopy(h, path, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Data()) != string(orig) {
		t.Fatal("compressed round-trip payload mismatch")
	}
	got.Release()
}

func TestReadColumnMappedZeroCopy(t *testing.T) {
	h := heap.New(heap.DefaultConfig(), nil)
	v, err := value.NewVector(h, value.VecI8, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range v.Data() {
		v.Data()[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "col")
	if err := WriteColumn(path, v, Config{}); err != nil {
		t.Fatal(err)
	}
	v.Release()

	mapped, err := ReadColumnMapped(path)
	if err != nil {
		t.Fatal(err)
	}
	if mapped.Mmod() != value.MmodFile {
		t.Fatal("expected MmodFile")
	}
	if mapped.Len() != 16 {
		t.Fatalf("len = %d, want 16", mapped.Len())
	}
	mapped.Release()
}

func TestValidateName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"price", true},
		{"", false},
		{"a/b", false},
		{".hidden", false},
		{"a..b", false},
	}
	for _, c := range cases {
		err := ValidateName(c.name)
		if (err == nil) != c.ok {
			t.Errorf("ValidateName(%q) ok=%v, want %v (err=%v)", c.name, err == nil, c.ok, err)
		}
	}
}
