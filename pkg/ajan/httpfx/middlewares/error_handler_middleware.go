package middlewares

import (
	"github.com/flashcache/flashcache/pkg/ajan/httpfx"
)

// ErrorHandlerMiddleware runs the handler chain and lets any Result pass
// through unchanged; it exists as the single seam where a future panic
// recovery or error-to-status mapping would be inserted without touching
// every route.
func ErrorHandlerMiddleware() httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		return ctx.Next()
	}
}
