package util

import "testing"

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"685 × 0,55mm", "685 X 0,55MM"},
		{"  DuroSeal   grün ", "DUROSEAL GRUN"},
		{`"Klebeband" 33m`, "KLEBEBAND 33M"},
	}
	for _, c := range cases {
		if got := NormalizeText(c.in); got != c.want {
			t.Fatalf("NormalizeText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFoldDiacritics(t *testing.T) {
	if got := FoldDiacritics("Windmöller & Hölscher"); got != "Windmoller & Holscher" {
		t.Fatalf("unexpected fold: %q", got)
	}
	if got := FoldDiacritics("weiß"); got != "weiss" {
		t.Fatalf("unexpected fold: %q", got)
	}
}
