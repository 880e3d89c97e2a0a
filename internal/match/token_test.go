package match

import (
	"testing"

	"skumatch/internal"
	"skumatch/internal/catalog"
)

func testIndex() *catalog.Index {
	return catalog.BuildIndex([]internal.CatalogProduct{
		{ID: 1, Code: "L1520-685-33", Name: "3M Cushion Mount L1520 685x0.55mm 33m", Category: "Mounting Tapes"},
		{ID: 2, Code: "E1920-685-33", Name: "3M Cushion Mount E1920 685x0.55mm 33m", Category: "Mounting Tapes"},
		{ID: 3, Code: "SDS025A", Name: "DuroSeal Bobst 16S Blue 160mm", Category: "Seals"},
		{ID: 4, Code: "SDS025B", Name: "DuroSeal Bobst 16S Grey 177mm height", Category: "Seals"},
	})
}

func TestTokenizeDimensionFirst(t *testing.T) {
	tokens := Tokenize("3M Cushion Mount L1520, 685 x 0,55mm, 33m")
	if tokens[0] != "685X0.55" {
		t.Fatalf("dimension token not extracted first: %v", tokens)
	}
	found := false
	for _, tok := range tokens {
		if tok == "L1520" {
			found = true
		}
	}
	if !found {
		t.Fatalf("code token missing: %v", tokens)
	}
}

func TestTokensMatchFamilies(t *testing.T) {
	if TokensMatch("L1920", "E1920") {
		t.Fatal("different alphabetic prefixes must never match")
	}
	if !TokensMatch("1920", "1920") {
		t.Fatal("identical numerics must match")
	}
	if !TokensMatch("007", "0.07") {
		t.Fatal("decimal-shift variants must match")
	}
	if !TokensMatch("0.55", "0,55") {
		t.Fatal("comma decimal separator must match dot form")
	}
	if !TokensMatch("685", "L1520-685-33") {
		t.Fatal("dimension part of a code should match its number")
	}
	if TokensMatch("1520", "L1520") {
		t.Fatal("bare digit run must not match the prefixed family")
	}
}

func TestOverlapScoreOrderInvariant(t *testing.T) {
	query := []string{"685X0.55", "CUSHION", "MOUNT", "L1520"}
	cand := []string{"3M", "CUSHION", "MOUNT", "L1520-685-33", "685X0.55", "33M"}
	a := OverlapScore(query, cand)

	reversedQ := []string{"L1520", "MOUNT", "CUSHION", "685X0.55"}
	reversedC := []string{"33M", "685X0.55", "L1520-685-33", "MOUNT", "CUSHION", "3M"}
	b := OverlapScore(reversedQ, reversedC)
	if a != b {
		t.Fatalf("overlap score depends on token order: %v vs %v", a, b)
	}
	if a <= 1.0 {
		t.Fatalf("dimension bonus should push score above 1.0, got %v", a)
	}
}

func TestSearchRejectsGenericTerms(t *testing.T) {
	m := NewTokenMatcher(testIndex())
	for _, q := range []string{"tape", "Klebeband", "seal"} {
		if got := m.Search(q, 5, 0); got != nil {
			t.Fatalf("generic query %q returned candidates: %v", q, got)
		}
	}
	if got := m.Search("DuroSeal Bobst 16S Grey", 5, 0.3); len(got) == 0 {
		t.Fatal("specific query returned nothing")
	}
}

func TestSearchRanksDimensionMatch(t *testing.T) {
	m := NewTokenMatcher(testIndex())
	got := m.Search("DuroSeal Bobst 16S Grey 177mm height", 2, 0.2)
	if len(got) == 0 || got[0].Product.ID != 4 {
		t.Fatalf("expected grey 177mm variant first, got %v", got)
	}
}

func TestSearchByCode(t *testing.T) {
	m := NewTokenMatcher(testIndex())
	if p := m.SearchByCode("sds025a"); p == nil || p.ID != 3 {
		t.Fatalf("case-insensitive exact lookup failed: %v", p)
	}
	if p := m.SearchByCode("SDS025"); p != nil {
		t.Fatal("prefix must not match in exact lookup")
	}
}

func TestDimensionBonusCapped(t *testing.T) {
	b := DimensionBonus("tape 685 x 0,55mm 33m", "Mounting 685x0.55 roll 33m extra 685")
	if b != 0.4 {
		t.Fatalf("bonus = %v, want cap 0.4", b)
	}
	if DimensionBonus("plain words only", "685x0.55") != 0 {
		t.Fatal("no dimensions in query must yield zero bonus")
	}
}
