package match

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"skumatch/internal"
	"skumatch/internal/util"
)

// attrSimilarity scores how well a candidate's attributes agree with the
// query's. Weighted facets, each counted only when both sides carry it.
// Second return is false when there was no shared facet to compare.
func attrSimilarity(q, c internal.AttributeSet) (float64, bool) {
	total, matched := 0.0, 0.0
	add := func(weight float64, ok bool) {
		total += weight
		if ok {
			matched += weight
		}
	}
	if q.MachineType != "" && c.MachineType != "" {
		add(0.30, q.MachineType == c.MachineType)
	}
	if q.Width != nil && c.Width != nil {
		add(0.30, dimsClose(*q.Width, *c.Width, 0.01))
	}
	if q.Height != nil && c.Height != nil {
		add(0.15, dimsClose(*q.Height, *c.Height, 0.01))
	}
	if q.Brand != "" && c.Brand != "" {
		add(0.15, q.Brand == c.Brand)
	}
	if q.Color != "" && c.Color != "" {
		add(0.10, q.Color == c.Color)
	}
	if total == 0 {
		return 0, false
	}
	return matched / total, true
}

func dimsClose(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// dimFacetMatch checks one query dimension against a candidate's width and
// height. Source texts are inconsistent about axis order, so a swap within
// tolerance still counts.
func dimFacetMatch(q float64, primary, alt *float64, tol float64) bool {
	if primary != nil && dimsClose(q, *primary, tol) {
		return true
	}
	return alt != nil && dimsClose(q, *alt, tol)
}

func codeSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	return 1 - float64(dist)/float64(longest)
}

func sortByID(products []internal.CatalogProduct) {
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
}

// Level 1: exact code match, attributes refining which family variant.
// An exact code is strong evidence on its own: weak or absent attributes
// lower the confidence slightly but never reject the family match. That is
// a deliberate asymmetry against Level 2, tuned on real failure cases.
type exactCodeLevel struct{ m *SmartMatcher }

func (l *exactCodeLevel) name() string { return "exact_code" }

func (l *exactCodeLevel) tryMatch(_ context.Context, q query, scope *OrderScope) *internal.MatchResult {
	if q.normCode == "" {
		return nil
	}

	seen := map[int]struct{}{}
	var candidates []internal.CatalogProduct
	include := func(p internal.CatalogProduct) {
		if _, dup := seen[p.ID]; dup || scope.Claimed(p.ID) {
			return
		}
		seen[p.ID] = struct{}{}
		candidates = append(candidates, p)
	}

	for _, p := range l.m.index.ByNormCode[q.normCode] {
		include(p)
	}
	if q.baseCode != "" {
		for _, p := range l.m.index.ByBaseCode[q.baseCode] {
			cNorm := util.NormalizeCode(p.Code)
			if q.normCode == q.baseCode || strings.HasPrefix(cNorm, q.normCode) || strings.HasPrefix(q.normCode, cNorm) {
				include(p)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sortByID(candidates)

	if len(candidates) == 1 {
		p := candidates[0]
		return &internal.MatchResult{Match: &p, Confidence: 1.0, Method: internal.MethodExactCode}
	}

	bestIdx, bestSim, haveSim := -1, 0.0, false
	for i, p := range candidates {
		sim, ok := attrSimilarity(q.attrs, ExtractAttributes(p.Name))
		if !ok {
			continue
		}
		if !haveSim || sim > bestSim {
			bestIdx, bestSim, haveSim = i, sim, true
		}
	}

	if haveSim && bestSim >= l.m.cfg.ExactAttrThreshold {
		p := candidates[bestIdx]
		return &internal.MatchResult{
			Match:      &p,
			Confidence: 0.90 + 0.10*bestSim,
			Method:     internal.MethodExactCodeWithAttrs,
		}
	}

	// Attributes were weak or absent: still a family match, first variant
	// at reduced confidence.
	p := candidates[0]
	return &internal.MatchResult{Match: &p, Confidence: 0.85, Method: internal.MethodExactCode}
}

// Level 2: fuzzy code match. Unlike Level 1, a near-miss code is never
// trusted alone; the line item must carry attributes and the candidate
// must agree with them.
type fuzzyCodeLevel struct{ m *SmartMatcher }

func (l *fuzzyCodeLevel) name() string { return "fuzzy_code" }

func (l *fuzzyCodeLevel) tryMatch(_ context.Context, q query, scope *OrderScope) *internal.MatchResult {
	if q.normCode == "" || !q.attrs.Usable() {
		return nil
	}

	bestSim := 0.0
	var best *internal.CatalogProduct
	for _, p := range l.m.index.Products {
		if p.Code == "" || scope.Claimed(p.ID) {
			continue
		}
		sim := codeSimilarity(q.normCode, util.NormalizeCode(p.Code))
		if sim < l.m.cfg.FuzzyCodeThreshold {
			continue
		}
		if best == nil || sim > bestSim || (sim == bestSim && p.ID < best.ID) {
			candidate := p
			best, bestSim = &candidate, sim
		}
	}
	if best == nil {
		return nil
	}

	attrSim, ok := attrSimilarity(q.attrs, ExtractAttributes(best.Name))
	if !ok || attrSim < l.m.cfg.FuzzyAttrThreshold {
		return nil
	}

	return &internal.MatchResult{
		Match:          best,
		Confidence:     (bestSim + attrSim) / 2,
		Method:         internal.MethodFuzzyCodeWithAttrs,
		RequiresReview: true,
	}
}

// Level 3: pure attribute matching for line items without a usable code.
// All required facets must hold; optional facets only improve the rank.
type attributeLevel struct{ m *SmartMatcher }

func (l *attributeLevel) name() string { return "attribute" }

func (l *attributeLevel) tryMatch(_ context.Context, q query, scope *OrderScope) *internal.MatchResult {
	if q.normCode != "" {
		return nil
	}

	var reqs []func(c internal.AttributeSet) bool
	if q.attrs.Brand != "" {
		brand := q.attrs.Brand
		reqs = append(reqs, func(c internal.AttributeSet) bool { return c.Brand == brand })
	}
	if q.attrs.MachineType != "" {
		machine := q.attrs.MachineType
		reqs = append(reqs, func(c internal.AttributeSet) bool { return c.MachineType == machine })
	}
	tol := l.m.cfg.DimToleranceMM
	if q.attrs.Width != nil {
		w := *q.attrs.Width
		reqs = append(reqs, func(c internal.AttributeSet) bool { return dimFacetMatch(w, c.Width, c.Height, tol) })
	}
	if q.attrs.Height != nil {
		h := *q.attrs.Height
		reqs = append(reqs, func(c internal.AttributeSet) bool { return dimFacetMatch(h, c.Height, c.Width, tol) })
	}
	if len(reqs) == 0 {
		// Nothing required to check means accepting on zero evidence.
		return nil
	}

	optChecked := 0
	if q.attrs.Color != "" {
		optChecked++
	}
	if q.attrs.ProductLine != "" {
		optChecked++
	}

	bestRatio := -1.0
	var best *internal.CatalogProduct
	for _, p := range l.m.index.Products {
		if scope.Claimed(p.ID) {
			continue
		}
		c := ExtractAttributes(p.Name)
		qualified := true
		for _, check := range reqs {
			if !check(c) {
				qualified = false
				break
			}
		}
		if !qualified {
			continue
		}

		optMatched := 0
		if q.attrs.Color != "" && c.Color == q.attrs.Color {
			optMatched++
		}
		if q.attrs.ProductLine != "" && c.ProductLine == q.attrs.ProductLine {
			optMatched++
		}
		ratio := float64(len(reqs)+optMatched) / float64(len(reqs)+optChecked)
		if ratio > bestRatio {
			candidate := p
			best, bestRatio = &candidate, ratio
		}
	}
	if best == nil {
		return nil
	}

	confidence := 0.60 + 0.20*bestRatio
	return &internal.MatchResult{
		Match:          best,
		Confidence:     confidence,
		Method:         internal.MethodAttributeMatching,
		RequiresReview: confidence < 0.70,
	}
}

// Level 4: semantic search through the hybrid matcher, attribute-filtered
// when the query carries attributes. Always flagged for review.
type semanticLevel struct{ m *SmartMatcher }

func (l *semanticLevel) name() string { return "semantic" }

func (l *semanticLevel) tryMatch(ctx context.Context, q query, scope *OrderScope) *internal.MatchResult {
	if q.name == "" {
		return nil
	}
	hits := l.m.hybrid.Search(ctx, q.name, l.m.cfg.SemanticTopK, l.m.cfg.SemanticMinScore)
	hits = dropClaimed(hits, scope)
	if len(hits) == 0 {
		return nil
	}

	type scored struct {
		cand    internal.MatchCandidate
		attrSim float64
	}
	var validated []scored
	for _, h := range hits {
		sim, ok := attrSimilarity(q.attrs, ExtractAttributes(h.Product.Name))
		if ok && sim >= l.m.cfg.SemanticAttrFloor {
			validated = append(validated, scored{cand: h, attrSim: sim})
		}
	}

	if len(validated) > 0 {
		best := validated[0]
		bestScore := (best.cand.Score + best.attrSim) / 2
		for _, v := range validated[1:] {
			if s := (v.cand.Score + v.attrSim) / 2; s > bestScore {
				best, bestScore = v, s
			}
		}
		p := best.cand.Product
		return &internal.MatchResult{
			Match:          &p,
			Confidence:     bestScore,
			Method:         internal.MethodRAGSemanticAttrs,
			RequiresReview: true,
			Candidates:     topCandidates(hits, 3),
		}
	}

	p := hits[0].Product
	return &internal.MatchResult{
		Match:          &p,
		Confidence:     hits[0].Score,
		Method:         internal.MethodRAGSemantic,
		RequiresReview: true,
		Candidates:     topCandidates(hits, 3),
	}
}

var keywordStopwords = map[string]struct{}{
	"WITH": {}, "FROM": {}, "THIS": {}, "THAT": {}, "SOME": {}, "EACH": {},
	"MIT": {}, "UND": {}, "FUER": {}, "OHNE": {}, "BITTE": {}, "ANGEBOT": {},
	"POUR": {}, "AVEC": {}, "PARA": {},
}

// Level 5: keyword overlap over significant name words. At least two
// keywords must land in the candidate's code+name text.
type keywordLevel struct{ m *SmartMatcher }

func (l *keywordLevel) name() string { return "keyword" }

func (l *keywordLevel) tryMatch(_ context.Context, q query, scope *OrderScope) *internal.MatchResult {
	keywords := significantKeywords(q.name)
	if len(keywords) < 2 {
		return nil
	}

	bestCount := 0
	var best *internal.CatalogProduct
	for _, p := range l.m.index.Products {
		if scope.Claimed(p.ID) {
			continue
		}
		text := util.NormalizeText(p.Code + " " + p.Name)
		count := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				count++
			}
		}
		if count >= 2 && (count > bestCount || (count == bestCount && best != nil && p.ID < best.ID)) {
			candidate := p
			best, bestCount = &candidate, count
		}
	}
	if best == nil {
		return nil
	}

	return &internal.MatchResult{
		Match:          best,
		Confidence:     l.m.cfg.KeywordConfidence,
		Method:         internal.MethodKeywordName,
		RequiresReview: true,
	}
}

func significantKeywords(name string) []string {
	var out []string
	for _, tok := range util.Tokenize(name) {
		if len(tok) < 4 {
			continue
		}
		if _, numeric := util.ParseNumericToken(tok); numeric {
			continue
		}
		if _, stop := keywordStopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Level 6: loosely related candidates for human disambiguation. Never a
// clean accept; the top hit is only the primary suggestion.
type partialLevel struct{ m *SmartMatcher }

func (l *partialLevel) name() string { return "partial" }

func (l *partialLevel) tryMatch(_ context.Context, q query, scope *OrderScope) *internal.MatchResult {
	qName := util.NormalizeText(q.name)
	var hits []internal.MatchCandidate
	for _, p := range l.m.index.Products {
		if scope.Claimed(p.ID) {
			continue
		}
		score := 0.0
		if q.normCode != "" && p.Code != "" {
			cNorm := util.NormalizeCode(p.Code)
			if len(q.normCode) >= 3 && len(cNorm) >= 3 && q.normCode[:3] == cNorm[:3] {
				score = 0.6
			}
		}
		if score == 0 && qName != "" {
			if sim := namePrefixSimilarity(qName, util.NormalizeText(p.Name)); sim >= 0.5 {
				score = sim
			}
		}
		if score > 0 {
			hits = append(hits, internal.MatchCandidate{Product: p, Score: score})
		}
	}
	if len(hits) == 0 {
		return nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Product.ID < hits[j].Product.ID
	})

	p := hits[0].Product
	return &internal.MatchResult{
		Match:          &p,
		Confidence:     0.50,
		Method:         internal.MethodPartialReview,
		RequiresReview: true,
		Candidates:     topCandidates(hits, 3),
	}
}

func namePrefixSimilarity(a, b string) float64 {
	const prefixLen = 20
	if len(a) > prefixLen {
		a = a[:prefixLen]
	}
	if len(b) > prefixLen {
		b = b[:prefixLen]
	}
	return codeSimilarity(a, b)
}

func dropClaimed(hits []internal.MatchCandidate, scope *OrderScope) []internal.MatchCandidate {
	out := hits[:0]
	for _, h := range hits {
		if !scope.Claimed(h.Product.ID) {
			out = append(out, h)
		}
	}
	return out
}

func topCandidates(hits []internal.MatchCandidate, n int) []internal.MatchCandidate {
	if len(hits) <= n {
		return append([]internal.MatchCandidate(nil), hits...)
	}
	return append([]internal.MatchCandidate(nil), hits[:n]...)
}
