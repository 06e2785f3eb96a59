package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/transport"
)

// Recovery turns a handler panic into a 500. http.ErrAbortHandler is
// re-raised so net/http can abort the connection.
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				observability.PanicsTotal.Inc()
				observability.GetLogger(r.Context()).Error("panic_recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				transport.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
