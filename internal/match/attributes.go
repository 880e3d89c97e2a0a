package match

import (
	"regexp"
	"strings"

	"skumatch/internal"
	"skumatch/internal/util"
)

// Facet extraction is rule-based on purpose: every facet has its own
// function over the normalized text, so new patterns slot in without
// touching call sites.

var (
	reDimPair    = regexp.MustCompile(`(?:^|[^A-Z0-9.])(\d+(?:[.,]\d+)?) ?X ?(\d+(?:[.,]\d+)?)(?: ?X ?(\d+(?:[.,]\d+)?))?`)
	reStandalone = regexp.MustCompile(`(?:^|[^A-Z0-9.])(\d+(?:[.,]\d+)?) ?MM\b`)
	reHeightWord = regexp.MustCompile(`(?:^|[^A-Z0-9.])(\d+(?:[.,]\d+)?) ?MM ?(?:HEIGHT|HOEHE|HOHE|H)\b`)
	// Two digits minimum keeps the brand token "3M" out of roll lengths.
	reLengthTok = regexp.MustCompile(`(?:^|[^A-Z0-9.])(\d{2,}(?:[.,]\d+)?) ?M\b`)
	reMaterial  = regexp.MustCompile(`\b(1\d{2})(?:MM)?\b`)
)

// Machine compatibility tokens (brand + model) recognized in order texts.
var machineTypes = []string{
	"BOBST 16S",
	"BOBST 20SIX",
	"BOBST M5",
	"BOBST M6",
	"W&H MIRAFLEX",
	"WINDMOLLER",
	"FISCHER & KRECKE",
	"COMEXI",
	"MARK ANDY",
	"NILPETER",
	"GALLUS",
	"UTECO",
}

var colorSynonyms = map[string]string{
	"GREY": "GREY", "GRAY": "GREY", "GRY": "GREY", "GRAU": "GREY",
	"BLUE": "BLUE", "BLU": "BLUE", "BLAU": "BLUE",
	"BLACK": "BLACK", "BLK": "BLACK", "SCHWARZ": "BLACK",
	"WHITE": "WHITE", "WHT": "WHITE", "WEISS": "WHITE",
	"RED": "RED", "ROT": "RED",
	"GREEN": "GREEN", "GRN": "GREEN", "GRUN": "GREEN",
	"YELLOW": "YELLOW", "YEL": "YELLOW", "GELB": "YELLOW",
	"ORANGE": "ORANGE",
	"BROWN":  "BROWN", "BRAUN": "BROWN",
}

var knownBrands = []string{"3M", "TESA", "LOHMANN", "DUPONT", "SCAPA", "AVERY", "DAETWYLER", "ROSSINI"}

var productLines = []string{"CUSHION MOUNT", "DUROSEAL", "DUPLOFLEX", "ROTOTEC", "SPLICETAPE"}

// ExtractAttributes pulls structured facets out of free text. Absent fields
// mean "constraint not applicable".
func ExtractAttributes(text string) internal.AttributeSet {
	norm := util.NormalizeText(text)
	attrs := internal.AttributeSet{
		Brand:         extractBrand(norm),
		MachineType:   extractMachineType(norm),
		Color:         extractColor(norm),
		ProductLine:   extractProductLine(norm),
		MaterialCodes: extractMaterialCodes(norm),
	}
	extractDimensions(norm, &attrs)
	return attrs
}

func extractBrand(norm string) string {
	for _, b := range knownBrands {
		if containsToken(norm, b) {
			return b
		}
	}
	return ""
}

func extractMachineType(norm string) string {
	for _, m := range machineTypes {
		if strings.Contains(norm, m) {
			return m
		}
	}
	return ""
}

func extractColor(norm string) string {
	for _, tok := range strings.Fields(norm) {
		if canonical, ok := colorSynonyms[tok]; ok {
			return canonical
		}
	}
	return ""
}

func extractProductLine(norm string) string {
	for _, p := range productLines {
		if strings.Contains(norm, p) {
			return p
		}
	}
	return ""
}

// extractMaterialCodes collects 3-digit tokens starting with 1. Soft signal
// only: they overlap with dimension numbers and are never used as a filter.
func extractMaterialCodes(norm string) map[string]struct{} {
	hits := reMaterial.FindAllStringSubmatch(norm, -1)
	if len(hits) == 0 {
		return nil
	}
	out := map[string]struct{}{}
	for _, h := range hits {
		out[h[1]] = struct{}{}
	}
	return out
}

// extractDimensions fills width/height/thickness by pattern position:
// "A x B [x C]" maps to width, height, thickness. Remaining standalone
// "N mm" goes to height when a height word follows, else width; a trailing
// "N m" is the roll length.
func extractDimensions(norm string, attrs *internal.AttributeSet) {
	rest := norm
	if m := reDimPair.FindStringSubmatchIndex(rest); m != nil {
		groups := reDimPair.FindStringSubmatch(rest)
		if v, ok := util.ParseNumericToken(groups[1]); ok {
			attrs.Width = util.FloatPtr(v)
		}
		if v, ok := util.ParseNumericToken(groups[2]); ok {
			attrs.Height = util.FloatPtr(v)
		}
		if groups[3] != "" {
			if v, ok := util.ParseNumericToken(groups[3]); ok {
				attrs.Thickness = util.FloatPtr(v)
			}
		}
		rest = rest[:m[0]] + " " + rest[m[1]:]
	}

	if m := reHeightWord.FindStringSubmatch(rest); m != nil {
		if v, ok := util.ParseNumericToken(m[1]); ok && attrs.Height == nil {
			attrs.Height = util.FloatPtr(v)
		}
		rest = reHeightWord.ReplaceAllString(rest, " ")
	}

	for _, m := range reStandalone.FindAllStringSubmatch(rest, -1) {
		v, ok := util.ParseNumericToken(m[1])
		if !ok {
			continue
		}
		switch {
		case attrs.Width == nil:
			attrs.Width = util.FloatPtr(v)
		case attrs.Height == nil:
			attrs.Height = util.FloatPtr(v)
		case attrs.Thickness == nil:
			attrs.Thickness = util.FloatPtr(v)
		}
	}
	rest = reStandalone.ReplaceAllString(rest, " ")

	if m := reLengthTok.FindStringSubmatch(rest); m != nil {
		if v, ok := util.ParseNumericToken(m[1]); ok {
			attrs.Length = util.FloatPtr(v)
		}
	}
}

func containsToken(norm, token string) bool {
	for _, t := range strings.Fields(norm) {
		if t == token {
			return true
		}
	}
	return false
}
