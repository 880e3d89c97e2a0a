package pipeline

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"skumatch/internal"
)

// LoadLineItems reads extracted order lines from a JSON file. Upstream
// extraction (email parsing, OCR, whatever produced the lines) is someone
// else's job; this is the engine's input boundary.
func LoadLineItems(path string) ([]internal.ExtractedLineItem, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read line items %s", path)
	}

	var items []internal.ExtractedLineItem
	if err := json.Unmarshal(blob, &items); err != nil {
		return nil, eris.Wrapf(err, "parse line items %s", path)
	}
	if len(items) == 0 {
		return nil, eris.Errorf("no line items in %s", path)
	}

	for i := range items {
		if items[i].LineNo == 0 {
			items[i].LineNo = i + 1
		}
	}
	return items, nil
}
