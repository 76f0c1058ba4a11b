package http

import (
	"context"

	"github.com/flashcache/flashcache/pkg/ajan/httpfx"
	"github.com/flashcache/flashcache/pkg/ajan/httpfx/middlewares"
	"github.com/flashcache/flashcache/pkg/ajan/httpfx/modules/healthcheck"
	"github.com/flashcache/flashcache/pkg/node/adapters/appcontext"
)

// Run builds the node's HTTP router, registers the ambient and admin
// routes, and starts serving until ctx is cancelled, returning a cleanup
// func the caller must invoke on shutdown.
func Run(ctx context.Context, appCtx *appcontext.AppContext) (func(), error) {
	routes := httpfx.NewRouter("/")
	httpService := httpfx.NewHTTPService(&appCtx.Config.HTTP, routes, appCtx.Logger)

	routes.Use(middlewares.ErrorHandlerMiddleware())
	routes.Use(middlewares.ResolveAddressMiddleware())
	routes.Use(middlewares.ResponseTimeMiddleware())
	routes.Use(middlewares.TracingMiddleware(appCtx.Logger))
	routes.Use(middlewares.MetricsMiddleware(httpService.InnerMetrics))

	healthcheck.RegisterHTTPRoutes(routes, &appCtx.Config.HTTP)
	RegisterRoutes(routes, appCtx)

	return httpService.Start(ctx) //nolint:wrapcheck
}
