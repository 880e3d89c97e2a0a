package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSnapshot(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "catalog.json")
	blob := `[
	  {"id": 1, "default_code": "L1520-685-33", "name": "3M Cushion Mount L1520 685x0.55mm 33m", "list_price": 412.5, "standard_price": 301.0, "category": "Mounting Tapes"},
	  {"id": 2, "default_code": "SDS025B", "name": "DuroSeal Bobst 16S Grey", "list_price": 18.0, "standard_price": 9.5, "category": "Seals"}
	]`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	products, mtime, err := LoadSnapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products", len(products))
	}
	if products[0].Code != "L1520-685-33" || products[0].Category != "Mounting Tapes" {
		t.Fatalf("unexpected product: %+v", products[0])
	}
	if mtime.IsZero() {
		t.Fatal("mtime not populated")
	}
}

func TestLoadSnapshotErrors(t *testing.T) {
	if _, _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing snapshot must fail")
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadSnapshot(empty); err == nil {
		t.Fatal("empty snapshot must fail")
	}
}

func TestBuildIndex(t *testing.T) {
	products, _, err := LoadSnapshot(writeFixture(t))
	if err != nil {
		t.Fatal(err)
	}
	idx := BuildIndex(products)

	if got := idx.ByNormCode["L152068533"]; len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("normalized code lookup failed: %+v", got)
	}
	if got := idx.ByBaseCode["L1520"]; len(got) != 1 {
		t.Fatalf("base code lookup failed: %+v", got)
	}
	if _, ok := idx.TokenToProductIDs["DUROSEAL"][2]; !ok {
		t.Fatal("token posting list missing DUROSEAL -> 2")
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	blob := `[
	  {"id": 1, "default_code": "L1520-685-33", "name": "3M Cushion Mount L1520 685x0.55mm 33m", "list_price": 412.5, "standard_price": 301.0, "category": "Mounting Tapes"},
	  {"id": 2, "default_code": "SDS025B", "name": "DuroSeal Bobst 16S Grey", "list_price": 18.0, "standard_price": 9.5, "category": "Seals"}
	]`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
