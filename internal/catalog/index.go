package catalog

import (
	"skumatch/internal"
	"skumatch/internal/util"
)

type Index struct {
	Products           []internal.CatalogProduct
	ProductsByID       map[int]internal.CatalogProduct
	ByNormCode         map[string][]internal.CatalogProduct
	ByBaseCode         map[string][]internal.CatalogProduct
	TokenToProductIDs  map[string]map[int]struct{}
	NormalizedNameByID map[int]string
}

func BuildIndex(products []internal.CatalogProduct) *Index {
	idx := &Index{
		Products:           products,
		ProductsByID:       map[int]internal.CatalogProduct{},
		ByNormCode:         map[string][]internal.CatalogProduct{},
		ByBaseCode:         map[string][]internal.CatalogProduct{},
		TokenToProductIDs:  map[string]map[int]struct{}{},
		NormalizedNameByID: map[int]string{},
	}

	for _, p := range products {
		idx.ProductsByID[p.ID] = p
		idx.NormalizedNameByID[p.ID] = util.NormalizeText(p.Name)

		if p.Code != "" {
			if norm := util.NormalizeCode(p.Code); norm != "" {
				idx.ByNormCode[norm] = append(idx.ByNormCode[norm], p)
			}
			if base := util.BaseCode(p.Code); base != "" {
				idx.ByBaseCode[base] = append(idx.ByBaseCode[base], p)
			}
		}

		for _, token := range util.Tokenize(p.Code + " " + p.Name) {
			if _, ok := idx.TokenToProductIDs[token]; !ok {
				idx.TokenToProductIDs[token] = map[int]struct{}{}
			}
			idx.TokenToProductIDs[token][p.ID] = struct{}{}
		}
	}

	return idx
}
