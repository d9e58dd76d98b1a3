package middleware

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/link-registry/internal/auth"
)

const bearerPrefix = "bearer "

// Credentials is a middleware that lifts a bearer token from the
// Authorization header into the request context. Requests without one pass
// through untouched; operations that need a caller fail later.
func Credentials(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		token := bearerToken(ctx.Header("Authorization"))
		if token == "" {
			next(ctx)

			return
		}

		newCtx := auth.ContextWithToken(ctx.Context(), token)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}
