package util

import (
	"regexp"
	"strconv"
	"strings"
)

// Manufacturer names that appear glued to the front of customer-supplied
// codes ("3M L1520" → "L1520"). Stripped only as a leading token.
var brandPrefixes = []string{"3M", "TESA", "LOHMANN", "DUPONT", "SAINT-GOBAIN", "SCAPA", "AVERY", "BIESSE"}

var (
	reBaseCode   = regexp.MustCompile(`^([A-Z]+\d{3,4})`)
	reNumericTok = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
)

// NormalizeCode canonicalizes a raw product code: uppercase, leading brand
// token stripped, whitespace/hyphens/underscores removed.
func NormalizeCode(input string) string {
	s := stripBrandPrefix(strings.ToUpper(FoldDiacritics(strings.TrimSpace(input))))
	out := strings.Builder{}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '/':
			out.WriteRune(r)
		}
	}
	return out.String()
}

// NormalizeCodeKeepSeparators is the variant used for prefix-family checks:
// same canonicalization but hyphens and slashes survive.
func NormalizeCodeKeepSeparators(input string) string {
	s := stripBrandPrefix(strings.ToUpper(FoldDiacritics(strings.TrimSpace(input))))
	out := strings.Builder{}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '/', r == '-':
			out.WriteRune(r)
		}
	}
	return out.String()
}

func stripBrandPrefix(s string) string {
	for _, brand := range brandPrefixes {
		if !strings.HasPrefix(s, brand) {
			continue
		}
		rest := s[len(brand):]
		// Only a leading token: the brand must be followed by a separator
		// and there must be something left to match on.
		if len(rest) > 0 && (rest[0] == ' ' || rest[0] == '-' || rest[0] == '_') {
			return strings.TrimLeft(rest, " -_")
		}
	}
	return s
}

// BaseCode reduces a code to its family stem: the leading letters plus a
// 3-4 digit run ("SDS025B", "SDS025-177-K12" → "SDS025"). Empty when the
// code does not start with such a run.
func BaseCode(input string) string {
	// Anchor on the first separator-delimited segment so a variant suffix
	// like "-177" cannot bleed into the family's digit run.
	seg := NormalizeCodeKeepSeparators(input)
	if i := strings.IndexAny(seg, "-/"); i >= 0 {
		seg = seg[:i]
	}
	m := reBaseCode.FindStringSubmatch(NormalizeCode(seg))
	if m == nil {
		return ""
	}
	return m[1]
}

// CodeVariants returns the bounded set of comparable spellings of a code.
// A pure-numeric reduction of a letter-prefixed code is never produced:
// that would conflate unrelated families sharing a numeric suffix.
func CodeVariants(input string) map[string]struct{} {
	out := map[string]struct{}{}
	hasLetter := strings.IndexFunc(strings.ToUpper(input), func(r rune) bool { return r >= 'A' && r <= 'Z' }) >= 0
	add := func(v string) {
		if v == "" {
			return
		}
		if hasLetter && isAllDigits(v) {
			return
		}
		out[v] = struct{}{}
	}
	add(NormalizeCode(input))
	add(NormalizeCodeKeepSeparators(input))
	add(strings.ToUpper(strings.TrimSpace(input)))
	return out
}

// NumericVariants generates plausible decimal-shift spellings of a numeric
// token ("007" → 70, 7, 0.7, 0.07). Tolerates the comma decimal separator.
// Returns nil for non-numeric input.
func NumericVariants(token string) map[string]struct{} {
	t := strings.TrimSpace(token)
	if !reNumericTok.MatchString(t) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", "."), 64)
	if err != nil {
		return nil
	}
	out := map[string]struct{}{t: {}}
	for _, shifted := range []float64{v * 10, v, v / 10, v / 100} {
		out[strconv.FormatFloat(shifted, 'f', -1, 64)] = struct{}{}
	}
	return out
}

// ParseNumericToken parses a token as a number, accepting a comma decimal
// separator. Second return is false for non-numeric tokens.
func ParseNumericToken(token string) (float64, bool) {
	t := strings.TrimSpace(token)
	if !reNumericTok.MatchString(t) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func LooksLikeCode(input string) bool {
	if len(strings.TrimSpace(input)) < 3 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, r := range input {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			hasLetter = true
		}
		if r >= '0' && r <= '9' {
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
