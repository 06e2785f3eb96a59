package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/carwash-app/carwash/internal/observability"
)

// Timeout bounds the request context to d. Handlers see the deadline through
// ctx and are expected to give up on their own; a request that outlives it is
// logged. d <= 0 disables the bound.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))

			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				observability.GetLogger(ctx).Warn("request_deadline_exceeded",
					zap.String("path", r.URL.Path),
					zap.Duration("limit", d),
				)
			}
		})
	}
}
