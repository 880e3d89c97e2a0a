package match

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"skumatch/internal"
	"skumatch/internal/catalog"
	"skumatch/internal/config"
	"skumatch/internal/util"
)

// CodeTranslator maps customer-supplied codes into the catalog's code
// space. Optional collaborator: Level 0 of the cascade.
type CodeTranslator interface {
	Translate(code string) (string, bool)
}

// OrderScope is the duplicate-prevention set for one order: a catalog row
// claimed by an earlier line item is off-limits for the rest of the order.
// One scope per order, created fresh before its first line item.
type OrderScope struct {
	claimed map[int]struct{}
}

func NewOrderScope() *OrderScope {
	return &OrderScope{claimed: map[int]struct{}{}}
}

func (s *OrderScope) Claim(id int) {
	s.claimed[id] = struct{}{}
}

func (s *OrderScope) Claimed(id int) bool {
	_, ok := s.claimed[id]
	return ok
}

// query is the per-line-item working state threaded through the levels.
type query struct {
	item     internal.ExtractedLineItem
	name     string
	code     string
	normCode string
	baseCode string
	attrs    internal.AttributeSet
}

// cascadeLevel is one strategy in the fixed-priority match pipeline. A nil
// result means "nothing acceptable here, fall through".
type cascadeLevel interface {
	name() string
	tryMatch(ctx context.Context, q query, scope *OrderScope) *internal.MatchResult
}

// Confidence of an accepted match also depends on how it was found.
var methodConfidence = map[internal.MatchMethod]float64{
	internal.MethodExactCode:          1.0,
	internal.MethodExactCodeWithAttrs: 1.0,
	internal.MethodFuzzyCodeWithAttrs: 0.95,
	internal.MethodAttributeMatching:  1.0,
	internal.MethodRAGSemantic:        1.0,
	internal.MethodRAGSemanticAttrs:   1.0,
	internal.MethodKeywordName:        0.95,
	internal.MethodPartialReview:      1.0,
}

// SmartMatcher runs the level-by-level cascade for one extracted line item.
// Levels are strictly ordered; the first accepted result wins.
type SmartMatcher struct {
	cfg        config.Config
	index      *catalog.Index
	token      *TokenMatcher
	hybrid     *HybridMatcher
	translator CodeTranslator
	levels     []cascadeLevel
	log        *zap.SugaredLogger
}

func NewSmartMatcher(cfg config.Config, index *catalog.Index, token *TokenMatcher, hybrid *HybridMatcher, log *zap.SugaredLogger) *SmartMatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	m := &SmartMatcher{cfg: cfg, index: index, token: token, hybrid: hybrid, log: log}
	m.levels = []cascadeLevel{
		&exactCodeLevel{m},
		&fuzzyCodeLevel{m},
		&attributeLevel{m},
		&semanticLevel{m},
		&keywordLevel{m},
		&partialLevel{m},
	}
	return m
}

// SetCodeTranslator installs the optional customer-code mapping step.
func (m *SmartMatcher) SetCodeTranslator(t CodeTranslator) {
	m.translator = t
}

// Match resolves one line item against the catalog. It never fails: bad
// input degrades to a no_match result, and validation misses inside a
// level just fall through to the next one.
func (m *SmartMatcher) Match(ctx context.Context, item internal.ExtractedLineItem, scope *OrderScope) internal.MatchResult {
	name := strings.TrimSpace(item.Name)
	code := ""
	if item.Code != nil {
		code = strings.TrimSpace(*item.Code)
	}
	if code == internal.NoCodeSentinel {
		code = ""
	}
	if name == "" && code == "" {
		return noMatch()
	}

	if m.translator != nil && code != "" {
		if mapped, ok := m.translator.Translate(code); ok {
			code = mapped
		}
	}

	// A code that is nothing but a category word carries no signal.
	if code != "" && IsGenericQuery(code) {
		code = ""
	}
	if code == "" && (name == "" || IsGenericQuery(name)) {
		return noMatch()
	}

	q := query{
		item:     item,
		name:     name,
		code:     code,
		normCode: util.NormalizeCode(code),
		baseCode: util.BaseCode(code),
		attrs:    ExtractAttributes(name + " " + code),
	}

	for _, level := range m.levels {
		result := level.tryMatch(ctx, q, scope)
		if result == nil {
			continue
		}
		result.Confidence = clamp01(result.Confidence * methodConfidence[result.Method])
		if result.Match != nil {
			scope.Claim(result.Match.ID)
		}
		m.log.Debugw("line matched", "line", item.LineNo, "level", level.name(), "method", result.Method, "confidence", result.Confidence)
		return *result
	}

	return noMatch()
}

func noMatch() internal.MatchResult {
	return internal.MatchResult{
		Match:          nil,
		Confidence:     0,
		Method:         internal.MethodNoMatch,
		RequiresReview: true,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
