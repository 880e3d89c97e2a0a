package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	reQuotes     = regexp.MustCompile(`["'` + "`" + `«»„“]`)
	reNonAllowed = regexp.MustCompile(`[^A-Z0-9X\-/\s.,+&]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// FoldDiacritics maps accented characters to their ASCII base form
// (ü→u, é→e). German sharp s is expanded before the NFD pass.
func FoldDiacritics(s string) string {
	s = strings.NewReplacer("ß", "ss", "ẞ", "SS", "æ", "ae", "Æ", "AE", "ø", "o", "Ø", "O").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeText uppercases, folds diacritics, unifies the dimension
// separators (×, *) to X and collapses whitespace.
func NormalizeText(input string) string {
	s := strings.ToUpper(FoldDiacritics(input))
	s = strings.NewReplacer("×", "X", "*", "X", "MM²", "MM2", "µM", "UM").Replace(s)
	s = reQuotes.ReplaceAllString(s, " ")
	s = reNonAllowed.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokenize splits normalized text into plain word/number tokens of at
// least two runes. The match package layers fuzzy variants on top.
func Tokenize(input string) []string {
	parts := strings.Split(NormalizeText(input), " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) >= 2 {
			out = append(out, p)
		}
	}
	return out
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
