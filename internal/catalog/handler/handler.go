package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"pos-catalog/internal/catalog/model"
	catSvc "pos-catalog/internal/catalog/service"
	"pos-catalog/internal/fileio"
	"pos-catalog/internal/metrics"
	"pos-catalog/internal/middleware"
	"pos-catalog/internal/respond"
	"pos-catalog/internal/search"
)

const maxMultipartMemory = 32 << 20

type importResult struct {
	Products int           `json:"products"`
	Source   string        `json:"source"`
	Mapping  model.Mapping `json:"mapping"`
}

// Import принимает multipart с полем file и заменяет каталог.
// Колонки можно переопределить полями name/code/barcode/price/id и header_row.
func Import(store *catSvc.Store, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()

		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodeTooLarge, "file too large")
				return
			}
			respond.BadRequest(w, "bad multipart form: "+err.Error())
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			respond.BadRequest(w, "missing file: "+err.Error())
			return
		}
		defer file.Close()

		mapping := catSvc.MergeMapping(model.Mapping{
			IDKey:      r.FormValue("id"),
			NameKey:    r.FormValue("name"),
			CodeKey:    r.FormValue("code"),
			BarcodeKey: r.FormValue("barcode"),
			PriceKey:   r.FormValue("price"),
			HeaderRow:  atoi(r.FormValue("header_row"), 1),
		})

		products, err := catSvc.Import(file, header.Filename, mapping)
		if err != nil {
			m.Import(false)
			log.Warn().Err(err).Str("file", header.Filename).Msg("catalog import failed")
			switch {
			case errors.Is(err, fileio.ErrUnsupported),
				errors.Is(err, fileio.ErrEmpty),
				errors.Is(err, catSvc.ErrNoRows),
				errors.Is(err, catSvc.ErrNoNameColumn):
				respond.BadRequest(w, err.Error())
			default:
				respond.BadRequest(w, "failed to read file: "+err.Error())
			}
			return
		}

		store.Replace(products, header.Filename)
		m.Import(true)
		log.Info().
			Str("file", header.Filename).
			Int("products", len(products)).
			Dur("elapsed", time.Since(start)).
			Msg("catalog imported")

		respond.JSON(w, http.StatusOK, importResult{
			Products: len(products),
			Source:   header.Filename,
			Mapping:  mapping,
		})
	}
}

type searchResult struct {
	Query string      `json:"query"`
	Total int         `json:"total"`
	Hits  []model.Hit `json:"hits"`
}

// Search: GET ?q=&min_score=&limit=
func Search(store *catSvc.Store, defMinScore float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := q.Get("q")
		minScore := toFloat(q.Get("min_score"), defMinScore)
		if minScore < 0 || minScore > 1 {
			respond.BadRequest(w, "min_score must be within [0, 1]")
			return
		}
		limit := atoi(q.Get("limit"), 50)
		if limit < 0 {
			respond.BadRequest(w, "limit must not be negative")
			return
		}

		hits := store.Search(query, search.WithMinScore(minScore), search.WithLimit(limit))
		respond.JSON(w, http.StatusOK, searchResult{Query: query, Total: len(hits), Hits: hits})
	}
}
