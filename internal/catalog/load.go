package catalog

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"skumatch/internal"
)

// LoadSnapshot reads the catalog snapshot produced by the ERP export.
// The snapshot mtime keys the embedding cache. Any read or decode failure
// is fatal to the caller: a partial catalog must never be served.
func LoadSnapshot(path string) ([]internal.CatalogProduct, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, eris.Wrapf(err, "stat catalog snapshot %s", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, eris.Wrapf(err, "read catalog snapshot %s", path)
	}

	var products []internal.CatalogProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, time.Time{}, eris.Wrapf(err, "decode catalog snapshot %s", path)
	}
	if len(products) == 0 {
		return nil, time.Time{}, eris.Errorf("catalog snapshot %s is empty", path)
	}

	return products, info.ModTime(), nil
}
