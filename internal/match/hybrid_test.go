package match

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"skumatch/internal/catalog"
)

func hybridFixture(t *testing.T, embedder Embedder) *HybridMatcher {
	t.Helper()
	idx := catalog.BuildIndex(cascadeCatalog())
	token := NewTokenMatcher(idx)
	var semantic *SemanticMatcher
	if embedder != nil {
		semantic = semanticFixture(t, embedder)
	}
	return NewHybridMatcher(token, semantic, zap.NewNop().Sugar())
}

func TestHybridDegradesToTokenSearch(t *testing.T) {
	h := hybridFixture(t, nil)

	if h.SemanticEnabled() {
		t.Fatal("no semantic matcher wired, expected disabled")
	}
	hits := h.Search(context.Background(), "Cushion Mount Plus 685x0.55", 5, 0.5)
	if len(hits) == 0 {
		t.Fatal("token fallback should still find candidates")
	}
	if hits[0].Product.ID != 1 {
		t.Fatalf("expected id 1 first, got %d", hits[0].Product.ID)
	}
}

func TestHybridFallsBackOnEmbedderError(t *testing.T) {
	embedder := &stubEmbedder{model: "stub"}
	h := hybridFixture(t, embedder)

	// Index was built fine; now the model goes away at query time.
	embedder.fail = true
	hits := h.Search(context.Background(), "Cushion Mount Plus 685x0.55", 5, 0.5)
	if len(hits) == 0 {
		t.Fatal("embedder failure should fall back to token search")
	}
	if hits[0].Product.ID != 1 {
		t.Fatalf("expected id 1 first, got %d", hits[0].Product.ID)
	}
}

func TestHybridDimensionRerank(t *testing.T) {
	h := hybridFixture(t, &stubEmbedder{model: "stub"})

	// Both width variants score the same semantically; only the stated
	// width separates them.
	hits := h.Search(context.Background(), "3M Cushion Mount Plus L1520 685MM x 0.55MM", 5, 0.3)
	if len(hits) < 2 {
		t.Fatalf("expected both variants, got %d hits", len(hits))
	}
	if hits[0].Product.ID != 1 {
		t.Fatalf("dimension bonus should rank the 685mm variant first, got id %d", hits[0].Product.ID)
	}
}

func TestHybridRejectsGenericQuery(t *testing.T) {
	h := hybridFixture(t, &stubEmbedder{model: "stub"})

	if hits := h.Search(context.Background(), "Klebeband", 5, 0.1); hits != nil {
		t.Fatalf("generic query must return nothing, got %+v", hits)
	}
}

func TestHybridSearchByCodeExactFirst(t *testing.T) {
	h := hybridFixture(t, &stubEmbedder{model: "stub"})

	hits := h.SearchByCode(context.Background(), "TTR4500", 5, 0.3)
	if len(hits) != 1 || hits[0].Product.ID != 30 || hits[0].Score != 1.0 {
		t.Fatalf("expected single exact hit on id 30, got %+v", hits)
	}
}
