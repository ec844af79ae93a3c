package serverhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	catHnd "pos-catalog/internal/catalog/handler"
	catSvc "pos-catalog/internal/catalog/service"
	"pos-catalog/internal/config"
	"pos-catalog/internal/metrics"
	"pos-catalog/internal/middleware"
	"pos-catalog/internal/respond"
	priceHnd "pos-catalog/internal/pricing/handler"
	priceSvc "pos-catalog/internal/pricing/service"
	"pos-catalog/server/http/handlers"
)

// Deps: всё, что живёт дольше одного запроса. Собирается в main.
type Deps struct {
	Catalog  *catSvc.Store
	Sessions *priceSvc.Sessions
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

func NewRouter(cfg config.Config, logger zerolog.Logger, deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.NotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, respond.CodeBadRequest, "method not allowed")
	})

	r.Get("/health", handlers.Health(deps.Catalog.Len))
	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/catalog", func(r chi.Router) {
		r.Post("/import", catHnd.Import(deps.Catalog, deps.Metrics, logger))
		r.Get("/search", catHnd.Search(deps.Catalog, cfg.SearchMinScore))
	})
	r.Route("/pricing/sessions", func(r chi.Router) {
		priceHnd.Routes(r, deps.Sessions, logger)
	})

	return r
}
