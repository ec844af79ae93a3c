package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pos-catalog/internal/catalog/model"
	"pos-catalog/internal/fileio"
)

var (
	ErrNoRows       = errors.New("no product rows")
	ErrNoNameColumn = errors.New("name column not found")
)

// Import читает файл каталога (.csv/.xls/.xlsx) и раскладывает строки по Mapping.
func Import(r io.Reader, filename string, m model.Mapping) ([]model.Product, error) {
	tbl, err := fileio.ReadTable(r, filename, m.HeaderRow)
	if err != nil {
		return nil, err
	}
	return toProducts(tbl, m)
}

func LoadFile(path string, m model.Mapping) ([]model.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f, filepath.Base(path), m)
}

// MergeMapping подставляет значения по умолчанию вместо пустых полей.
func MergeMapping(m model.Mapping) model.Mapping {
	def := model.DefaultMapping()
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	out := model.Mapping{
		IDKey:      pick(m.IDKey, def.IDKey),
		NameKey:    pick(m.NameKey, def.NameKey),
		CodeKey:    pick(m.CodeKey, def.CodeKey),
		BarcodeKey: pick(m.BarcodeKey, def.BarcodeKey),
		PriceKey:   pick(m.PriceKey, def.PriceKey),
		HeaderRow:  m.HeaderRow,
	}
	if out.HeaderRow < 1 {
		out.HeaderRow = def.HeaderRow
	}
	return out
}

func toProducts(tbl fileio.Table, m model.Mapping) ([]model.Product, error) {
	used := make(map[string]bool)
	resolve := func(want string) string {
		k := resolveKey(tbl.Headers, want, used)
		if k != "" {
			used[k] = true
		}
		return k
	}
	// порядок важен: штрихкод раньше артикула, иначе "code" ⊂ "barcode"
	nameKey := resolve(m.NameKey)
	if nameKey == "" {
		return nil, fmt.Errorf("%w (want %q, have %v)", ErrNoNameColumn, m.NameKey, tbl.Headers)
	}
	idKey := resolve(m.IDKey)
	barcodeKey := resolve(m.BarcodeKey)
	codeKey := resolve(m.CodeKey)
	priceKey := resolve(m.PriceKey)

	products := make([]model.Product, 0, len(tbl.Records))
	for i, rec := range tbl.Records {
		name := strings.TrimSpace(rec[nameKey])
		if name == "" {
			continue
		}
		p := model.Product{
			ID:      strings.TrimSpace(rec[idKey]),
			Name:    name,
			Code:    strings.TrimSpace(rec[codeKey]),
			Barcode: strings.TrimSpace(rec[barcodeKey]),
			Price:   decimal.Zero,
		}
		if v, ok := ParseAmount(rec[priceKey]); ok {
			p.Price = v
		}
		if p.ID == "" {
			p.ID = p.Code
		}
		if p.ID == "" {
			p.ID = strconv.Itoa(i + 1)
		}
		products = append(products, p)
	}
	if len(products) == 0 {
		return nil, ErrNoRows
	}
	return products, nil
}
