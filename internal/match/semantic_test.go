package match

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubEmbedder produces deterministic vectors from token hashes so that
// texts sharing words land close together. Good enough to exercise
// ranking, caching and degradation without a model server.
type stubEmbedder struct {
	model string
	calls int
	fail  bool
}

func (s *stubEmbedder) Model() string { return s.model }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.fail {
		return nil, errors.New("model unavailable")
	}
	vec := make([]float32, 64)
	for _, tok := range Tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%64] += 1
	}
	return vec, nil
}

func semanticFixture(t *testing.T, embedder Embedder) *SemanticMatcher {
	t.Helper()
	products := cascadeCatalog()
	cache := filepath.Join(t.TempDir(), "embeddings.gob")
	idx, err := BuildEmbeddingIndex(context.Background(), embedder, products, cache, time.Unix(1000, 0), zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return NewSemanticMatcher(idx, embedder)
}

func TestSemanticSearchRanksSharedVocabulary(t *testing.T) {
	m := semanticFixture(t, &stubEmbedder{model: "stub"})

	hits, err := m.Search(context.Background(), "DuroSeal Bobst 16S Grey 177mm Height", 3, 0.3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if got := hits[0].Product.ID; got != 10 {
		t.Fatalf("expected seal product first, got id %d", got)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Fatal("hits not sorted by score")
		}
	}
}

func TestSemanticSearchByCodeLiteral(t *testing.T) {
	m := semanticFixture(t, &stubEmbedder{model: "stub"})

	hits, err := m.SearchByCode(context.Background(), "l1520-685-33", 0.3)
	if err != nil {
		t.Fatalf("search by code: %v", err)
	}
	if len(hits) != 1 || hits[0].Product.ID != 1 || hits[0].Score != 1.0 {
		t.Fatalf("expected literal hit on id 1 with score 1.0, got %+v", hits)
	}
}

func TestEmbeddingCacheReuse(t *testing.T) {
	products := cascadeCatalog()
	cache := filepath.Join(t.TempDir(), "embeddings.gob")
	mtime := time.Unix(1000, 0)
	log := zap.NewNop().Sugar()

	first := &stubEmbedder{model: "stub"}
	if _, err := BuildEmbeddingIndex(context.Background(), first, products, cache, mtime, log); err != nil {
		t.Fatalf("first build: %v", err)
	}
	if first.calls != len(products) {
		t.Fatalf("expected %d embed calls, got %d", len(products), first.calls)
	}

	second := &stubEmbedder{model: "stub"}
	if _, err := BuildEmbeddingIndex(context.Background(), second, products, cache, mtime, log); err != nil {
		t.Fatalf("second build: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("cache hit should skip embedding, got %d calls", second.calls)
	}
}

func TestEmbeddingCacheInvalidation(t *testing.T) {
	products := cascadeCatalog()
	cache := filepath.Join(t.TempDir(), "embeddings.gob")
	log := zap.NewNop().Sugar()

	first := &stubEmbedder{model: "stub"}
	if _, err := BuildEmbeddingIndex(context.Background(), first, products, cache, time.Unix(1000, 0), log); err != nil {
		t.Fatalf("first build: %v", err)
	}

	// Newer snapshot invalidates.
	newer := &stubEmbedder{model: "stub"}
	if _, err := BuildEmbeddingIndex(context.Background(), newer, products, cache, time.Unix(2000, 0), log); err != nil {
		t.Fatalf("rebuild on mtime change: %v", err)
	}
	if newer.calls != len(products) {
		t.Fatalf("mtime change should re-embed, got %d calls", newer.calls)
	}

	// Different model invalidates.
	other := &stubEmbedder{model: "other"}
	if _, err := BuildEmbeddingIndex(context.Background(), other, products, cache, time.Unix(2000, 0), log); err != nil {
		t.Fatalf("rebuild on model change: %v", err)
	}
	if other.calls != len(products) {
		t.Fatalf("model change should re-embed, got %d calls", other.calls)
	}
}

func TestSemanticSearchEmptyQuery(t *testing.T) {
	m := semanticFixture(t, &stubEmbedder{model: "stub"})

	hits, err := m.Search(context.Background(), "   ", 5, 0.3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits != nil {
		t.Fatalf("empty query should return nothing, got %+v", hits)
	}
}

func TestL2Normalize(t *testing.T) {
	vec := l2Normalize([]float32{3, 4})
	if d := dot(vec, vec); d < 0.999 || d > 1.001 {
		t.Fatalf("expected unit vector, |v|^2 = %f", d)
	}
	zero := l2Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatal("zero vector must pass through unchanged")
	}
}
