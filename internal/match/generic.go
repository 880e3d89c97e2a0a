package match

import (
	"strings"

	"skumatch/internal/util"
)

// Bare category words, multilingual. A query consisting solely of these
// would fuzzy-match an arbitrary catalog row, so it is rejected before any
// search runs.
var genericTerms = map[string]struct{}{
	"TAPE": {}, "TAPES": {}, "KLEBEBAND": {}, "BAND": {},
	"BLADE": {}, "BLADES": {}, "MESSER": {}, "RAKEL": {},
	"SEAL": {}, "SEALS": {}, "DICHTUNG": {}, "GASKET": {}, "GASKETS": {},
	"ADHESIVE": {}, "KLEBER": {}, "GLUE": {},
	"FOAM": {}, "SCHAUM": {},
	"SLEEVE": {}, "SLEEVES": {},
	"PLATE": {}, "PLATTE": {},
	"ROLL": {}, "ROLLE": {},
}

// IsGenericQuery reports whether the query is nothing but generic category
// words: no digits, no recognized brand token, every token on the generic
// list. Such queries carry zero discriminating signal.
func IsGenericQuery(input string) bool {
	norm := util.NormalizeText(input)
	if norm == "" {
		return false
	}
	if strings.ContainsAny(norm, "0123456789") {
		return false
	}
	for _, b := range knownBrands {
		if containsToken(norm, b) {
			return false
		}
	}
	for _, p := range productLines {
		if strings.Contains(norm, p) {
			return false
		}
	}
	sawGeneric := false
	for _, tok := range strings.Fields(norm) {
		if _, ok := genericTerms[tok]; !ok {
			return false
		}
		sawGeneric = true
	}
	return sawGeneric
}
