package match

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"skumatch/internal"
)

// Stage-1 net: wide enough that the token re-ranker has real candidates,
// strict enough to reject wrong-category products outright.
const (
	stage1TopK     = 20
	stage1MinScore = 0.60
)

// HybridMatcher composes the semantic matcher as a coarse category filter
// with the token matcher's dimension bonus as re-ranker. With no semantic
// index (model failed at startup) it degrades to token-only search.
type HybridMatcher struct {
	token    *TokenMatcher
	semantic *SemanticMatcher
	log      *zap.SugaredLogger

	degradedOnce sync.Once
}

func NewHybridMatcher(token *TokenMatcher, semantic *SemanticMatcher, log *zap.SugaredLogger) *HybridMatcher {
	return &HybridMatcher{token: token, semantic: semantic, log: log}
}

func (h *HybridMatcher) SemanticEnabled() bool { return h.semantic != nil }

func (h *HybridMatcher) Search(ctx context.Context, query string, topK int, minScore float64) []internal.MatchCandidate {
	if IsGenericQuery(query) {
		return nil
	}
	if h.semantic == nil {
		h.logDegraded()
		return h.token.Search(query, topK, minScore)
	}

	stage1, err := h.semantic.Search(ctx, query, stage1TopK, stage1MinScore)
	if err != nil {
		h.log.Warnw("semantic search failed, using token search", "err", err)
		return h.token.Search(query, topK, minScore)
	}
	if len(stage1) == 0 {
		// Never return empty just because the semantic net missed; a
		// token-based match may still exist.
		return h.token.Search(query, topK, minScore)
	}

	out := make([]internal.MatchCandidate, 0, len(stage1))
	for _, c := range stage1 {
		bonus := DimensionBonus(query, c.Product.Code+" "+c.Product.Name)
		final := c.Score * (1.0 + bonus*0.5)
		if final < minScore {
			continue
		}
		out = append(out, internal.MatchCandidate{Product: c.Product, Score: final})
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
	return out
}

// SearchByCode tries the exact token-index lookup first: cheapest and most
// reliable. Only a miss goes through the two-stage pipeline.
func (h *HybridMatcher) SearchByCode(ctx context.Context, code string, topK int, minScore float64) []internal.MatchCandidate {
	if p := h.token.SearchByCode(code); p != nil {
		return []internal.MatchCandidate{{Product: *p, Score: 1.0}}
	}
	return h.Search(ctx, code, topK, minScore)
}

func (h *HybridMatcher) logDegraded() {
	h.degradedOnce.Do(func() {
		h.log.Warnw("semantic matcher unavailable, token-only matching for this process")
	})
}
