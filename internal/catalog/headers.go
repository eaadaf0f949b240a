package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	productTokens     = []string{"PRODUTO", "PRODUCT", "MATERIAL", "CODIGO"}
	massTokens        = []string{"PESO", "MASSA", "WEIGHT", "MASS"}
	lengthUnitTokens  = []string{"METRO", "M2", "METER", "METRE"}
	descriptionTokens = []string{"DESCRI"}
)

// foldHeader trims, strips accents and upper-cases a header so "Descrição do produto"
// and "DESCRICAO DO PRODUTO" compare equal.
func foldHeader(raw string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, raw)
	if err != nil {
		folded = raw
	}
	return strings.ToUpper(strings.TrimSpace(folded))
}

func containsAny(header string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(header, token) {
			return true
		}
	}
	return false
}

type columnIndex struct {
	product     int
	factor      int
	description int
}

// detectColumns locates the product, factor and description columns. A product
// header that also names a description ("DESCRIÇÃO DO PRODUTO") is only used when
// nothing better exists.
func detectColumns(headers []string) (columnIndex, Columns, bool) {
	idx := columnIndex{product: -1, factor: -1, description: -1}
	fallbackProduct := -1

	for i, raw := range headers {
		h := foldHeader(raw)
		if h == "" {
			continue
		}
		isDescription := containsAny(h, descriptionTokens)

		if idx.factor < 0 && containsAny(h, massTokens) && containsAny(h, lengthUnitTokens) {
			idx.factor = i
			continue
		}
		if containsAny(h, productTokens) {
			if !isDescription && idx.product < 0 {
				idx.product = i
				continue
			}
			if isDescription && fallbackProduct < 0 {
				fallbackProduct = i
			}
		}
		if isDescription && idx.description < 0 {
			idx.description = i
		}
	}

	if idx.product < 0 {
		idx.product = fallbackProduct
		if idx.description == idx.product {
			idx.description = -1
		}
	}

	cols := Columns{}
	if idx.product >= 0 {
		cols.Product = strings.TrimSpace(headers[idx.product])
	}
	if idx.factor >= 0 {
		cols.Factor = strings.TrimSpace(headers[idx.factor])
	}
	if idx.description >= 0 {
		cols.Description = strings.TrimSpace(headers[idx.description])
	}
	return idx, cols, idx.product >= 0 && idx.factor >= 0
}
