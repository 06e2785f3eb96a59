package middleware

import (
	"net/http"

	"github.com/google/uuid"
)

// RequestID reuses an inbound X-Request-ID or mints one, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		w.Header().Set(HeaderRequestID, id)
		r.Header.Set(HeaderRequestID, id)

		next.ServeHTTP(w, r.WithContext(InjectRequestID(r.Context(), id)))
	})
}
