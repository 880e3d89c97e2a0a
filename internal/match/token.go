package match

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"skumatch/internal"
	"skumatch/internal/catalog"
	"skumatch/internal/util"
)

// TokenMatcher scores catalog entries by fuzzy token overlap with a query,
// weighting matched dimension numbers above plain lexical overlap.
type TokenMatcher struct {
	index      *catalog.Index
	candTokens map[int][]string
}

func NewTokenMatcher(index *catalog.Index) *TokenMatcher {
	m := &TokenMatcher{index: index, candTokens: make(map[int][]string, len(index.Products))}
	for _, p := range index.Products {
		m.candTokens[p.ID] = Tokenize(p.Code + " " + p.Name)
	}
	return m
}

var (
	reDimExpr   = regexp.MustCompile(`(\d+(?:[.,]\d+)?) ?X ?(\d+(?:[.,]\d+)?)(?: ?X ?(\d+(?:[.,]\d+)?))?(?:MM)?`)
	reUnitNum   = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)MM$`)
	reSplitSeps = regexp.MustCompile(`[ ,;()&+]+`)
	reCodePref  = regexp.MustCompile(`^([A-Z]+)[-/]?(\d+)`)
)

var tokenSynonyms = map[string]string{
	"GRY": "GREY", "GRAY": "GREY", "GRAU": "GREY",
	"BLU": "BLUE", "BLAU": "BLUE",
	"BLK": "BLACK", "SCHWARZ": "BLACK",
	"WHT": "WHITE", "WEISS": "WHITE",
	"GRN": "GREEN", "GRUN": "GREEN",
	"YEL": "YELLOW", "GELB": "YELLOW",
	"MTR": "M", "MTRS": "M", "METER": "M",
	"PCS": "PC", "STK": "PC",
}

// Tokenize lowers the query into comparable tokens. Dimension expressions
// are lifted out first as single higher-priority tokens ("685 x 0,55" →
// "685X0.55"); the remainder splits on separators with a small synonym fold.
func Tokenize(text string) []string {
	norm := util.NormalizeText(text)
	var out []string

	rest := reDimExpr.ReplaceAllStringFunc(norm, func(m string) string {
		groups := reDimExpr.FindStringSubmatch(m)
		dims := []string{normalizeDecimal(groups[1]), normalizeDecimal(groups[2])}
		if groups[3] != "" {
			dims = append(dims, normalizeDecimal(groups[3]))
		}
		out = append(out, strings.Join(dims, "X"))
		return " "
	})

	for _, tok := range reSplitSeps.Split(rest, -1) {
		tok = strings.Trim(tok, ".-")
		if len([]rune(tok)) < 2 {
			continue
		}
		if syn, ok := tokenSynonyms[tok]; ok {
			tok = syn
		}
		if m := reUnitNum.FindStringSubmatch(tok); m != nil {
			tok = normalizeDecimal(m[1])
		}
		out = append(out, tok)
	}
	return out
}

func normalizeDecimal(s string) string {
	return strings.ReplaceAll(s, ",", ".")
}

// tokenVariants expands one token into its comparable spellings. Numeric
// tokens get decimal-shift variants; code-shaped tokens split on internal
// separators and also appear separator-stripped. The leading alphabetic
// prefix of a code is never stripped: "L1920" and "E1920" must stay
// distinct families even though the digit runs coincide.
func tokenVariants(token string) map[string]struct{} {
	if vars := util.NumericVariants(token); vars != nil {
		return vars
	}
	out := map[string]struct{}{token: {}}
	if !util.LooksLikeCode(token) {
		return out
	}

	banned := ""
	if m := reCodePref.FindStringSubmatch(token); m != nil {
		banned = m[2]
	}
	add := func(v string) {
		if len(v) < 2 || v == banned {
			return
		}
		out[v] = struct{}{}
	}

	stripped := strings.Map(func(r rune) rune {
		if r == '-' || r == '/' || r == '.' {
			return -1
		}
		return r
	}, token)
	add(stripped)
	for _, part := range strings.FieldsFunc(token, func(r rune) bool { return r == '-' || r == '/' }) {
		add(part)
	}
	return out
}

// TokensMatch is the per-token fuzzy equivalence: variant-set intersection,
// or numeric near-equality, or an exact factor-of-10 decimal shift.
func TokensMatch(a, b string) bool {
	va, aNum := util.ParseNumericToken(a)
	vb, bNum := util.ParseNumericToken(b)
	if aNum && bNum {
		if math.Abs(va-vb) < 0.01 {
			return true
		}
		if vb != 0 && (closeTo(va/vb, 10) || closeTo(vb/va, 10)) {
			return true
		}
	}
	if aNum != bNum {
		// A numeric token never equals a code-shaped one; the digit run of
		// a prefixed code is not among its variants.
		if !aNum && !util.LooksLikeCode(a) {
			return false
		}
		if !bNum && !util.LooksLikeCode(b) {
			return false
		}
	}
	varsA := tokenVariants(a)
	for v := range tokenVariants(b) {
		if _, ok := varsA[v]; ok {
			return true
		}
	}
	return false
}

func closeTo(v, target float64) bool {
	return math.Abs(v-target) < 1e-9
}

// OverlapScore is set-membership based: the fraction of query tokens with a
// fuzzy match among candidate tokens, plus a +0.3 bonus per matched numeric
// token of 3+ digits and +0.4 once when a full WxH dimension token matched.
// The sum deliberately exceeds 1.0 when dimensions confirm; callers clamp
// at their own boundary if they need a probability.
func OverlapScore(queryTokens, candidateTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	matched := 0
	bonus := 0.0
	dimMatched := false
	for _, q := range queryTokens {
		hit := false
		for _, c := range candidateTokens {
			if TokensMatch(q, c) {
				hit = true
				break
			}
		}
		if !hit {
			continue
		}
		matched++
		switch {
		case isDimToken(q):
			dimMatched = true
		case isLongNumeric(q):
			bonus += 0.3
		}
	}
	score := float64(matched) / float64(len(queryTokens))
	if dimMatched {
		bonus += 0.4
	}
	return score + bonus
}

func isDimToken(tok string) bool {
	i := strings.IndexByte(tok, 'X')
	if i <= 0 || i == len(tok)-1 {
		return false
	}
	_, leftNum := util.ParseNumericToken(tok[:i])
	return leftNum
}

func isLongNumeric(tok string) bool {
	if _, ok := util.ParseNumericToken(tok); !ok {
		return false
	}
	digits := 0
	for _, r := range tok {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 3
}

// DimensionBonus counts exact dimension-number matches between two texts,
// +0.2 each, capped at 0.4. Used by the hybrid re-ranker.
func DimensionBonus(query, candidate string) float64 {
	qDims := dimensionNumbers(query)
	if len(qDims) == 0 {
		return 0
	}
	cDims := dimensionNumbers(candidate)
	bonus := 0.0
	for q := range qDims {
		if _, ok := cDims[q]; ok {
			bonus += 0.2
			if bonus >= 0.4 {
				return 0.4
			}
		}
	}
	return bonus
}

func dimensionNumbers(text string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, tok := range Tokenize(text) {
		if isDimToken(tok) {
			for _, part := range strings.Split(tok, "X") {
				out[part] = struct{}{}
			}
			continue
		}
		if isLongNumeric(tok) || strings.ContainsRune(tok, '.') {
			if _, ok := util.ParseNumericToken(tok); ok {
				out[normalizeDecimal(tok)] = struct{}{}
			}
		}
	}
	return out
}

// Search ranks catalog entries by overlap score. Generic one-word category
// queries are rejected outright.
func (m *TokenMatcher) Search(query string, topK int, minScore float64) []internal.MatchCandidate {
	if strings.TrimSpace(query) == "" || IsGenericQuery(query) {
		return nil
	}
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}

	ids := m.prefilter(queryTokens)
	out := make([]internal.MatchCandidate, 0, len(ids))
	for id := range ids {
		score := OverlapScore(queryTokens, m.candTokens[id])
		if score < minScore {
			continue
		}
		out = append(out, internal.MatchCandidate{Product: m.index.ProductsByID[id], Score: score})
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

// prefilter narrows scoring to products sharing at least one token variant
// with the query, falling back to a capped full scan when nothing hits.
func (m *TokenMatcher) prefilter(queryTokens []string) map[int]struct{} {
	ids := map[int]struct{}{}
	for _, token := range queryTokens {
		for v := range tokenVariants(token) {
			for id := range m.index.TokenToProductIDs[v] {
				ids[id] = struct{}{}
			}
		}
	}
	if len(ids) == 0 {
		for _, p := range m.index.Products {
			ids[p.ID] = struct{}{}
			if len(ids) >= 1500 {
				break
			}
		}
	}
	return ids
}

// SearchByCode is exact case-insensitive code equality only. No fuzziness.
func (m *TokenMatcher) SearchByCode(code string) *internal.CatalogProduct {
	if strings.TrimSpace(code) == "" {
		return nil
	}
	for _, p := range m.index.Products {
		if p.Code != "" && strings.EqualFold(p.Code, code) {
			found := p
			return &found
		}
	}
	return nil
}
