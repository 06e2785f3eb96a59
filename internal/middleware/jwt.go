package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/carwash-app/carwash/internal/observability"
	"github.com/carwash-app/carwash/internal/token"
	"github.com/carwash-app/carwash/internal/transport"
)

var (
	errMissingToken = errors.New("missing token")
	errTokenFormat  = errors.New("invalid token format")
)

// JWT verifies the bearer token and puts the user id and username into the
// request context.
func JWT(tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractToken(r)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				observability.GetLogger(r.Context()).Debug("jwt_rejected")
				unauthorized(w, "could not validate credentials")
				return
			}

			ctx := InjectUserID(r.Context(), claims.UserID)
			ctx = InjectUsername(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errTokenFormat
	}

	return parts[1], nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	transport.WriteError(w, http.StatusUnauthorized, "unauthorized", msg)
}
