package middleware

import (
	"net/http"
	"time"

	"github.com/carwash-app/carwash/internal/observability"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs every request once it completes. Server errors are
// logged at error level, everything else at debug.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		}

		log := observability.GetLogger(r.Context())
		if ww.Status() >= http.StatusInternalServerError {
			log.Error("http_request", fields...)
			return
		}
		log.Debug("http_request", fields...)
	})
}
