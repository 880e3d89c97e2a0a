package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCodeMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.json")
	blob := `{
	  "CUST-4711": "L1520-685-33",
	  "3M L1520 685": "L1520-685-33",
	  "  ": "ignored",
	  "EMPTY": "  "
	}`
	if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadCodeMap(path)
	if err != nil {
		t.Fatal(err)
	}
	if m.Len() != 2 {
		t.Fatalf("expected 2 usable entries, got %d", m.Len())
	}

	// Normalized lookup: case and separators must not matter.
	for _, input := range []string{"CUST-4711", "cust 4711", "CUST4711"} {
		got, ok := m.Translate(input)
		if !ok || got != "L1520-685-33" {
			t.Fatalf("%q: expected L1520-685-33, got %q (ok=%v)", input, got, ok)
		}
	}

	if _, ok := m.Translate("unknown"); ok {
		t.Fatal("unknown code must not translate")
	}
}

func TestLoadCodeMapErrors(t *testing.T) {
	if _, err := LoadCodeMap(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("missing file must fail")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`[1,2,3]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCodeMap(bad); err == nil {
		t.Fatal("non-object json must fail")
	}
}
