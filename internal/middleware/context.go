package middleware

import (
	"context"

	"github.com/carwash-app/carwash/internal/observability"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	usernameKey
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderRequestID = "X-Request-ID"
)

func InjectUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

func InjectUsername(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, usernameKey, name)
}

func Username(ctx context.Context) string {
	v, _ := ctx.Value(usernameKey).(string)
	return v
}

func InjectRequestID(ctx context.Context, id string) context.Context {
	return observability.WithRequestID(ctx, id)
}

func RequestIDFromContext(ctx context.Context) string {
	return observability.RequestID(ctx)
}
