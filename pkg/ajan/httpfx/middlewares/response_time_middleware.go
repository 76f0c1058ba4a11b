package middlewares

import (
	"time"

	"github.com/flashcache/flashcache/pkg/ajan/httpfx"
)

// ResponseTimeHeader carries the handler chain's wall-clock duration.
const ResponseTimeHeader = "X-Response-Time"

// ResponseTimeMiddleware stamps every response with how long the handler
// chain took, so an operator curling the admin surface can see latency
// without reaching for the metrics backend.
func ResponseTimeMiddleware() httpfx.Handler {
	return func(ctx *httpfx.Context) httpfx.Result {
		startTime := time.Now()

		result := ctx.Next()

		ctx.ResponseWriter.Header().Set(ResponseTimeHeader, time.Since(startTime).String())

		return result
	}
}
