// catalogsearch: поиск по файлу каталога без запуска сервиса.
//
// Usage:
//
//	catalogsearch --file products.xlsx [--header-row 1] [--min-score 0.1] [--limit 20] QUERY
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/urfave/cli/v2"

	"pos-catalog/internal/catalog/model"
	catSvc "pos-catalog/internal/catalog/service"
	"pos-catalog/internal/search"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "catalogsearch",
		Usage:     "Fuzzy search over a product catalog file (csv, xls, xlsx)",
		ArgsUsage: "QUERY",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Catalog file",
				EnvVars:  []string{"CATALOG_FILE"},
				Required: true,
			},
			&cli.IntFlag{
				Name:  "header-row",
				Value: 1,
				Usage: "Header row number (1-based)",
			},
			&cli.Float64Flag{
				Name:    "min-score",
				Value:   search.DefaultMinScore,
				Usage:   "Minimum match score in [0, 1]",
				EnvVars: []string{"SEARCH_MIN_SCORE"},
			},
			&cli.IntFlag{
				Name:  "limit",
				Value: 20,
				Usage: "Maximum number of rows, 0 for all",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	minScore := c.Float64("min-score")
	if minScore < 0 || minScore > 1 {
		return fmt.Errorf("min-score must be within [0, 1], got %v", minScore)
	}
	if c.Int("limit") < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	m := catSvc.MergeMapping(model.Mapping{HeaderRow: c.Int("header-row")})
	products, err := catSvc.LoadFile(c.String("file"), m)
	if err != nil {
		return fmt.Errorf("load %s: %w", c.String("file"), err)
	}

	store := catSvc.NewStore(nil)
	store.Replace(products, c.String("file"))
	hits := store.Search(strings.Join(c.Args().Slice(), " "),
		search.WithMinScore(minScore),
		search.WithLimit(c.Int("limit")))

	printHits(c.App.Writer, hits)
	return nil
}

func printHits(w io.Writer, hits []model.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "no matches")
		return
	}
	table := uitable.New()
	table.MaxColWidth = 50
	table.Wrap = true
	table.AddRow("SCORE", "NAME", "CODE", "BARCODE", "PRICE")
	for _, h := range hits {
		table.AddRow(fmt.Sprintf("%.2f", h.Score), h.Name, h.Code, h.Barcode, h.Price.StringFixed(2))
	}
	fmt.Fprintln(w, table)
}
