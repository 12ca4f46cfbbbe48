package symtab

import (
	"path/filepath"
	"testing"
)

func TestInternFindRoundTrip(t *testing.T) {
	tbl := New()
	id1 := tbl.Intern("price")
	id2 := tbl.Intern("volume")
	id3 := tbl.Intern("price")
	if id1 != id3 {
		t.Fatalf("re-interning same string got different id: %d vs %d", id1, id3)
	}
	if id1 == id2 {
		t.Fatal("distinct strings must get distinct ids")
	}
	if got := tbl.Find("price"); got != id1 {
		t.Fatalf("Find(price) = %d, want %d", got, id1)
	}
	if got := tbl.Find("missing"); got != -1 {
		t.Fatalf("Find(missing) = %d, want -1", got)
	}
	s, err := tbl.Str(id2)
	if err != nil {
		t.Fatal(err)
	}
	if s != "volume" {
		t.Fatalf("Str(id2) = %q, want volume", s)
	}
	if tbl.Count() != 2 {
		t.Fatalf("count = %d, want 2", tbl.Count())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	tbl := New()
	tbl.Intern("price")
	tbl.Intern("volume")
	tbl.Intern("symbol")

	path := filepath.Join(t.TempDir(), "sym")
	if err := tbl.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded := New()
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("loaded count = %d, want 3", loaded.Count())
	}
	if loaded.Find("volume") == -1 {
		t.Fatal("loaded table missing 'volume'")
	}
}
