package idempotency

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"
)

const HeaderKey = "Idempotency-Key"

type ctxKey struct{}

func WithKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, ctxKey{}, key)
}

// GetKey returns the key of the request, or "" when the client sent none.
func GetKey(ctx context.Context) string {
	key, _ := ctx.Value(ctxKey{}).(string)
	return key
}

// Middleware moves the Idempotency-Key header into the request context.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := strings.TrimSpace(c.Request().Header.Get(HeaderKey))
		if key != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(WithKey(req.Context(), key)))
		}
		return next(c)
	}
}
