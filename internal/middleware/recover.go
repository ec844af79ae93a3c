package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"pos-catalog/internal/respond"
)

func Recover(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().
						Str("rid", GetRequestID(r)).
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("panic")
					respond.Internal(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
