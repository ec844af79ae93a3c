package model

import "github.com/shopspring/decimal"

type Product struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Code    string          `json:"code,omitempty"`    // артикул / SKU
	Barcode string          `json:"barcode,omitempty"` // EAN и т.п.
	Price   decimal.Decimal `json:"price"`
}

// Mapping: какие колонки файла что означают. Альтернативы через "|".
type Mapping struct {
	IDKey      string `json:"idKey"`
	NameKey    string `json:"nameKey"`
	CodeKey    string `json:"codeKey"`
	BarcodeKey string `json:"barcodeKey"`
	PriceKey   string `json:"priceKey"`
	HeaderRow  int    `json:"headerRow"` // строка заголовков (1-based)
}

func DefaultMapping() Mapping {
	return Mapping{
		IDKey:      "id|код товара",
		NameKey:    "name|title|наименование|номенклатура|товар",
		CodeKey:    "code|sku|артикул",
		BarcodeKey: "barcode|ean|штрихкод|штрих-код",
		PriceKey:   "price|цена|стоимость",
		HeaderRow:  1,
	}
}

// Hit: товар с оценкой поиска.
type Hit struct {
	Product
	Score float64 `json:"score"`
}
