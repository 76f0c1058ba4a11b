package httpfx

import (
	"net/http"
	"slices"
	"strings"
)

// Router is a thin layer over http.ServeMux that threads a middleware chain
// (Use) through every route registered on it or on a sub-Router created with
// Group. Grouped routers share the parent's mux, so registering on a group
// is equivalent to registering on the root with a prefixed pattern.
type Router struct {
	mux *http.ServeMux

	path     string
	handlers []Handler
	routes   []*Route
}

// NewRouter creates a root router mounted at path.
func NewRouter(path string) *Router {
	return &Router{
		mux: http.NewServeMux(),

		path:     path,
		handlers: nil,
		routes:   nil,
	}
}

func (router *Router) GetPath() string {
	return router.path
}

func (router *Router) GetMux() *http.ServeMux {
	return router.mux
}

func (router *Router) GetHandlers() []Handler {
	return router.handlers
}

func (router *Router) GetRoutes() []*Route {
	return router.routes
}

// Group returns a sub-router sharing the same mux, whose path is this
// router's path joined with the given segment, and which inherits this
// router's middleware chain.
func (router *Router) Group(path string) *Router {
	return &Router{
		mux: router.mux,

		path:     joinPath(router.path, path),
		handlers: slices.Clone(router.handlers),
		routes:   nil,
	}
}

// Use appends middleware handlers to this router's chain. Handlers added
// here run, in order, ahead of every route registered afterwards on this
// router or on routers derived from it via a later Group call; a Group
// taken before this call keeps the chain it copied and does not see them.
func (router *Router) Use(handlers ...Handler) {
	router.handlers = append(router.handlers, handlers...)
}

// Route registers pattern (net/http ServeMux syntax, e.g. "GET /keys/{key}")
// joined with the router's path, running this router's middleware chain
// followed by handler.
func (router *Router) Route(pattern string, handler Handler) *Route {
	chain := append(slices.Clone(router.handlers), handler)

	route := &Route{
		Pattern:    nil,
		Parameters: nil,
		Handlers:   chain,
		Spec:       RouteOpenAPISpec{}, //nolint:exhaustruct

		MuxHandlerFunc: nil,
	}

	route.MuxHandlerFunc = func(responseWriter http.ResponseWriter, request *http.Request) {
		ctx := NewContext(responseWriter, request, chain)

		result := ctx.Next()

		writeResult(responseWriter, ctx.Request, result)
	}

	router.mux.HandleFunc(joinPattern(router.path, pattern), route.MuxHandlerFunc)
	router.routes = append(router.routes, route)

	return route
}

func writeResult(responseWriter http.ResponseWriter, request *http.Request, result Result) {
	if result.RedirectToURI() != "" {
		http.Redirect(responseWriter, request, result.RedirectToURI(), result.StatusCode())

		return
	}

	responseWriter.WriteHeader(result.StatusCode())
	responseWriter.Write(result.Body()) //nolint:errcheck,gosec
}

func joinPath(prefix string, segment string) string {
	trimmed := strings.TrimSuffix(prefix, "/")

	return trimmed + segment
}

func joinPattern(prefix string, pattern string) string {
	method, path, hasMethod := strings.Cut(pattern, " ")
	if !hasMethod {
		path = method
		method = ""
	}

	full := joinPath(prefix, path)
	if full == "" {
		full = "/"
	}

	if method == "" {
		return full
	}

	return method + " " + full
}
