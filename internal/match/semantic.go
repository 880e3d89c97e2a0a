package match

import (
	"context"
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"skumatch/internal"
	"skumatch/internal/util"
)

// Embedder is the model runtime the semantic matcher depends on. The
// production implementation lives in internal/embed; tests inject a stub.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingIndex holds one unit-normalized vector per catalog row, in
// catalog order. Built once at startup, read-only afterwards; a catalog
// change means building a new instance.
type EmbeddingIndex struct {
	model    string
	mtime    int64
	products []internal.CatalogProduct
	vectors  [][]float32
}

type embeddingCacheFile struct {
	Model         string
	SnapshotMtime int64
	Vectors       [][]float32
}

// BuildEmbeddingIndex loads the cached vectors keyed by (model id, catalog
// snapshot mtime), or embeds the whole catalog and persists the result.
// The cache is disposable: any mismatch in model, mtime or row count
// triggers a full rebuild.
func BuildEmbeddingIndex(ctx context.Context, embedder Embedder, products []internal.CatalogProduct, cachePath string, snapshotMtime time.Time, log *zap.SugaredLogger) (*EmbeddingIndex, error) {
	idx := &EmbeddingIndex{
		model:    embedder.Model(),
		mtime:    snapshotMtime.Unix(),
		products: products,
	}

	if vectors, ok := loadEmbeddingCache(cachePath, idx.model, idx.mtime, len(products)); ok {
		log.Infow("embedding cache loaded", "path", cachePath, "rows", len(vectors))
		idx.vectors = vectors
		return idx, nil
	}

	log.Infow("embedding catalog", "model", idx.model, "rows", len(products))
	idx.vectors = make([][]float32, len(products))
	for i, p := range products {
		vec, err := embedder.Embed(ctx, embeddingText(p))
		if err != nil {
			return nil, eris.Wrapf(err, "embed catalog row id=%d", p.ID)
		}
		idx.vectors[i] = l2Normalize(vec)
	}

	if err := saveEmbeddingCache(cachePath, idx); err != nil {
		log.Warnw("embedding cache not persisted", "path", cachePath, "err", err)
	}
	return idx, nil
}

func embeddingText(p internal.CatalogProduct) string {
	parts := []string{p.Code, p.Name, p.Category}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func loadEmbeddingCache(path, model string, mtime int64, rows int) ([][]float32, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var cached embeddingCacheFile
	if err := gob.NewDecoder(f).Decode(&cached); err != nil {
		return nil, false
	}
	if cached.Model != model || cached.SnapshotMtime != mtime || len(cached.Vectors) != rows {
		return nil, false
	}
	return cached.Vectors, true
}

func saveEmbeddingCache(path string, idx *EmbeddingIndex) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "create embedding cache dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create embedding cache file")
	}
	defer f.Close()

	cached := embeddingCacheFile{Model: idx.model, SnapshotMtime: idx.mtime, Vectors: idx.vectors}
	if err := gob.NewEncoder(f).Encode(&cached); err != nil {
		return eris.Wrap(err, "encode embedding cache")
	}
	return nil
}

func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// SemanticMatcher ranks catalog rows by cosine similarity against the
// pre-computed embedding index.
type SemanticMatcher struct {
	index    *EmbeddingIndex
	embedder Embedder
}

func NewSemanticMatcher(index *EmbeddingIndex, embedder Embedder) *SemanticMatcher {
	return &SemanticMatcher{index: index, embedder: embedder}
}

func (m *SemanticMatcher) Search(ctx context.Context, query string, topK int, minScore float64) ([]internal.MatchCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "embed query")
	}
	qv := l2Normalize(vec)

	out := make([]internal.MatchCandidate, 0, topK)
	for i, p := range m.index.products {
		sim := dot(qv, m.index.vectors[i])
		if sim < minScore {
			continue
		}
		out = append(out, internal.MatchCandidate{Product: p, Score: sim})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Product.ID < out[j].Product.ID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// SearchByCode short-circuits on literal code equality (similarity 1.0)
// before falling back to embedding search with the code as query text.
func (m *SemanticMatcher) SearchByCode(ctx context.Context, code string, minScore float64) ([]internal.MatchCandidate, error) {
	norm := util.NormalizeCode(code)
	if norm != "" {
		for _, p := range m.index.products {
			if p.Code != "" && util.NormalizeCode(p.Code) == norm {
				return []internal.MatchCandidate{{Product: p, Score: 1.0}}, nil
			}
		}
	}
	return m.Search(ctx, code, 5, minScore)
}
