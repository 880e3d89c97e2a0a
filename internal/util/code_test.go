package util

import "testing"

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"L1520-685-33", "L152068533"},
		{"3M L1520", "L1520"},
		{"tesa 4965", "4965"},
		{"sds025_b", "SDS025B"},
		{" E1015 / 33 ", "E1015/33"},
	}
	for _, c := range cases {
		if got := NormalizeCode(c.in); got != c.want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBaseCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"SDS025B", "SDS025"},
		{"SDS025-177-K12", "SDS025"},
		{"L1520-685-33", "L1520"},
		{"Klebeband", ""},
		{"1920", ""},
	}
	for _, c := range cases {
		if got := BaseCode(c.in); got != c.want {
			t.Fatalf("BaseCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBaseCodeRoundTrip(t *testing.T) {
	for _, code := range []string{"SDS025-177-K12", "L1520-685-33", "E1015B"} {
		base := BaseCode(code)
		if base == "" {
			t.Fatalf("no base for %q", code)
		}
		if again := BaseCode(base + "-anything"); again != base {
			t.Fatalf("BaseCode(%q) = %q, want %q", base+"-anything", again, base)
		}
	}
}

func TestCodeVariantsNeverPureNumeric(t *testing.T) {
	for v := range CodeVariants("L1920") {
		if isAllDigits(v) {
			t.Fatalf("pure-numeric variant %q produced for prefixed code", v)
		}
	}
	if _, ok := CodeVariants("L 1920")["L1920"]; !ok {
		t.Fatal("expected normalized variant L1920")
	}
}

func TestNumericVariants(t *testing.T) {
	vars := NumericVariants("007")
	if _, ok := vars["0.07"]; !ok {
		t.Fatalf("variants of 007 missing 0.07: %v", vars)
	}
	if _, ok := vars["0.7"]; !ok {
		t.Fatalf("variants of 007 missing 0.7: %v", vars)
	}
	if NumericVariants("L1920") != nil {
		t.Fatal("non-numeric token must yield no variants")
	}
	if _, ok := NumericVariants("0,55")["0.55"]; !ok {
		t.Fatal("comma decimal separator not folded")
	}
}

func TestLooksLikeCode(t *testing.T) {
	if !LooksLikeCode("L1520") {
		t.Fatal("L1520 should look like a code")
	}
	if LooksLikeCode("Klebeband") {
		t.Fatal("plain word is not a code")
	}
	if LooksLikeCode("a1") {
		t.Fatal("too short to be a code")
	}
}
