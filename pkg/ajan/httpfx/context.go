package httpfx

import (
	"context"
	"net/http"
)

// Handler is one link in a route's middleware+terminal-handler chain.
type Handler func(ctx *Context) Result

// ContextKey namespaces values middlewares thread through a request's
// context.Context, so they don't collide with caller-supplied keys.
type ContextKey string

// Context carries one request through its handler chain, mirroring the
// net/http request/response pair plus the position within the chain.
type Context struct {
	Request        *http.Request
	ResponseWriter http.ResponseWriter

	Results Results

	handlers []Handler
	index    int
}

// NewContext builds a fresh per-request Context bound to a route's resolved
// handler chain (router-level middlewares followed by the route handler).
func NewContext(responseWriter http.ResponseWriter, request *http.Request, handlers []Handler) *Context {
	return &Context{
		Request:        request,
		ResponseWriter: responseWriter,

		Results: Results{},

		handlers: handlers,
		index:    -1,
	}
}

// Next invokes the next handler in the chain. A handler that does not call
// Next short-circuits the remaining chain (e.g. an auth middleware rejecting
// a request before it reaches the route's terminal handler).
func (ctx *Context) Next() Result {
	ctx.index++

	if ctx.index < len(ctx.handlers) {
		return ctx.handlers[ctx.index](ctx)
	}

	return ctx.Results.Ok()
}

// UpdateContext replaces the request's context.Context, e.g. to thread a
// resolved value (auth principal, trace span) to downstream handlers.
func (ctx *Context) UpdateContext(newCtx context.Context) {
	ctx.Request = ctx.Request.WithContext(newCtx)
}
