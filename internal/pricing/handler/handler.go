package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pos-catalog/internal/middleware"
	"pos-catalog/internal/pricing/model"
	"pos-catalog/internal/pricing/service"
	"pos-catalog/internal/respond"
)

type sessionView struct {
	ID      string        `json:"id"`
	Package model.Package `json:"package"`
	State   model.State   `json:"state"`
}

func view(id string, calc *service.Calculator) sessionView {
	return sessionView{ID: id, Package: calc.Package(), State: calc.Snapshot()}
}

// Routes вешает обработчики сессий калькулятора на r.
func Routes(r chi.Router, sessions *service.Sessions, logger zerolog.Logger) {
	r.Post("/", CreateSession(sessions, logger))
	r.Get("/{id}", GetSession(sessions))
	r.Put("/{id}/selection", UpdateSelection(sessions, logger))
	r.Put("/{id}/package", UpdatePackage(sessions, logger))
	r.Delete("/{id}", CloseSession(sessions, logger))
}

func CreateSession(sessions *service.Sessions, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkg, err := decodePackage(r)
		if err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		id, calc, err := sessions.Create(pkg)
		if err != nil {
			if errors.Is(err, service.ErrTooManySessions) {
				logger.Warn().Str("rid", middleware.GetRequestID(r)).Int("open", sessions.Len()).Msg("pricing session limit reached")
				respond.Error(w, http.StatusTooManyRequests, respond.CodeTooMany, err.Error())
				return
			}
			logger.Error().Err(err).Msg("create pricing session")
			respond.Internal(w)
			return
		}
		logger.Info().
			Str("rid", middleware.GetRequestID(r)).
			Str("session", id).
			Int64("package", pkg.ID).
			Bool("customizable", pkg.Customizable).
			Msg("pricing session opened")
		respond.JSON(w, http.StatusCreated, view(id, calc))
	}
}

func GetSession(sessions *service.Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		calc, ok := sessions.Get(id)
		if !ok {
			respond.NotFound(w, "session not found")
			return
		}
		respond.JSON(w, http.StatusOK, view(id, calc))
	}
}

// UpdateSelection отвечает 202: расчёт идёт асинхронно, клиент опрашивает GetSession.
func UpdateSelection(sessions *service.Sessions, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		calc, ok := sessions.Get(id)
		if !ok {
			respond.NotFound(w, "session not found")
			return
		}
		var sel model.Selection
		if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
			respond.BadRequest(w, "bad selection: "+err.Error())
			return
		}
		if err := calc.RequestCalculation(sel); err != nil {
			switch {
			case errors.Is(err, service.ErrInvalidSelection):
				respond.BadRequest(w, err.Error())
			case errors.Is(err, service.ErrClosed):
				respond.NotFound(w, "session closed")
			default:
				logger.Error().Err(err).Str("session", id).Msg("request calculation")
				respond.Internal(w)
			}
			return
		}
		respond.JSON(w, http.StatusAccepted, view(id, calc))
	}
}

func UpdatePackage(sessions *service.Sessions, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		calc, ok := sessions.Get(id)
		if !ok {
			respond.NotFound(w, "session not found")
			return
		}
		pkg, err := decodePackage(r)
		if err != nil {
			respond.BadRequest(w, err.Error())
			return
		}
		calc.Invalidate(pkg)
		logger.Info().
			Str("rid", middleware.GetRequestID(r)).
			Str("session", id).
			Int64("package", pkg.ID).
			Msg("pricing session invalidated")
		respond.JSON(w, http.StatusOK, view(id, calc))
	}
}

func CloseSession(sessions *service.Sessions, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !sessions.Close(id) {
			respond.NotFound(w, "session not found")
			return
		}
		logger.Info().Str("rid", middleware.GetRequestID(r)).Str("session", id).Msg("pricing session closed")
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodePackage(r *http.Request) (model.Package, error) {
	var pkg model.Package
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		return model.Package{}, fmt.Errorf("bad package: %w", err)
	}
	if pkg.ID <= 0 {
		return model.Package{}, errors.New("packageId must be positive")
	}
	if pkg.BasePrice.LessThan(decimal.Zero) {
		return model.Package{}, errors.New("basePrice must not be negative")
	}
	return pkg, nil
}
