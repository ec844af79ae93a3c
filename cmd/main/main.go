package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"pos-catalog/internal/catalog/model"
	catSvc "pos-catalog/internal/catalog/service"
	"pos-catalog/internal/config"
	"pos-catalog/internal/metrics"
	priceSvc "pos-catalog/internal/pricing/service"
	serverhttp "pos-catalog/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := catSvc.NewStore(m)
	if cfg.CatalogFile != "" {
		products, err := catSvc.LoadFile(cfg.CatalogFile, model.DefaultMapping())
		if err != nil {
			logger.Fatal().Err(err).Str("file", cfg.CatalogFile).Msg("catalog preload")
		}
		store.Replace(products, cfg.CatalogFile)
		logger.Info().Str("file", cfg.CatalogFile).Int("products", len(products)).Msg("catalog preloaded")
	}

	quoter := priceSvc.NewHTTPQuoter(cfg.PricingURL, cfg.PricingTimeout)
	sessions := priceSvc.NewSessions(quoter, m,
		priceSvc.SessionsConfig{MaxSessions: cfg.MaxSessions, IdleTTL: cfg.SessionTTL},
		priceSvc.WithDebounce(cfg.PricingDebounce),
		priceSvc.WithCacheSize(cfg.PricingCacheSize),
		priceSvc.WithLogger(logger.With().Str("component", "pricing").Logger()),
	)

	r := serverhttp.NewRouter(cfg, logger, serverhttp.Deps{
		Catalog:  store,
		Sessions: sessions,
		Registry: reg,
		Metrics:  m,
	})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().
		Str("addr", cfg.Addr()).
		Str("pricing_api", cfg.PricingURL).
		Dur("debounce", cfg.PricingDebounce).
		Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	// таймеры и вызовы в полёте не должны пережить сервер
	sessions.CloseAll()
	logger.Info().Msg("bye")
}
