// Package fileio reads spreadsheet-like uploads (CSV, XLS, XLSX) into header-keyed records.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrEmpty       = errors.New("file has no rows")
)

// Table: строки файла, разложенные по заголовкам. Headers сохраняют порядок колонок.
type Table struct {
	Headers []string
	Records []map[string]string
}

// ReadTable выбирает парсер по расширению. headerRow, номер строки заголовков (1-based).
func ReadTable(r io.Reader, filename string, headerRow int) (Table, error) {
	if headerRow < 1 {
		headerRow = 1
	}
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx":
		rows, err = readXLSX(r)
	case ".xls":
		rows, err = readXLS(r)
	case ".csv", ".txt":
		rows, err = readCSV(r)
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupported, filename)
	}
	if err != nil {
		return Table{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmpty
	}
	h := pickHeader(rows, headerRow)
	return Table{Headers: h, Records: rowsToMaps(rows, h, headerRow)}, nil
}

// pickHeader: берёт строку заголовков и подставляет Column N для пустых.
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, v := range h {
		v = normalizeCell(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		// одинаковые заголовки не должны затирать друг друга
		if n := seen[v]; n > 0 {
			seen[v] = n + 1
			v = fmt.Sprintf("%s (%d)", v, n+1)
		} else {
			seen[v] = 1
		}
		out[i] = v
	}
	return out
}

// rowsToMaps: конвертирует AoA в []map по заголовкам, пропуская полностью пустые строки.
func rowsToMaps(rows [][]string, headers []string, headerRow int) []map[string]string {
	var out []map[string]string
	for r := headerRow; r < len(rows); r++ {
		rec := rows[r]
		m := make(map[string]string, len(headers))
		empty := true
		for c, h := range headers {
			var v string
			if c < len(rec) {
				v = normalizeCell(rec[c])
			}
			if v != "" {
				empty = false
			}
			m[h] = v
		}
		if !empty {
			out = append(out, m)
		}
	}
	return out
}

// normalizeCell: обрезка, NBSP/узкие пробелы → обычный пробел.
func normalizeCell(s string) string {
	s = strings.NewReplacer("\u00a0", " ", "\u202f", " ", "\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(s)
}
