package catalog

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"skumatch/internal/util"
)

// CodeMap translates customer-specific article codes into catalog codes.
// Lookups are keyed on the normalized spelling, so "3M L1520 685" and
// "l1520-685" hit the same entry.
type CodeMap struct {
	byNorm map[string]string
}

// LoadCodeMap reads a flat JSON object of customer code → catalog code.
func LoadCodeMap(path string) (*CodeMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read code map %s", path)
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, eris.Wrapf(err, "decode code map %s", path)
	}

	m := &CodeMap{byNorm: make(map[string]string, len(entries))}
	for customer, catalogCode := range entries {
		norm := util.NormalizeCode(customer)
		if norm == "" || strings.TrimSpace(catalogCode) == "" {
			continue
		}
		m.byNorm[norm] = strings.TrimSpace(catalogCode)
	}
	return m, nil
}

func (m *CodeMap) Translate(code string) (string, bool) {
	mapped, ok := m.byNorm[util.NormalizeCode(code)]
	return mapped, ok
}

func (m *CodeMap) Len() int { return len(m.byNorm) }
