// Package routes assembles the HTTP API
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/TomMcIver/Stock-Port/pkg/middleware"
	"github.com/TomMcIver/Stock-Port/pkg/routes/documents"
	"github.com/TomMcIver/Stock-Port/pkg/routes/health"
	"github.com/TomMcIver/Stock-Port/pkg/routes/reference"
	"github.com/TomMcIver/Stock-Port/pkg/routes/securities"
	"github.com/TomMcIver/Stock-Port/pkg/routes/tag"
)

// Dependencies configure the server itself. Route handlers resolve the
// services they use from the default ectoinject container.
type Dependencies struct {
	ServiceName  string
	Logger       ectologger.Logger
	Health       *health.Checker
	AllowOrigins []string
}

// New builds the echo server with middleware and every route registered
func New(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(deps.Logger)

	if deps.ServiceName != "" {
		e.Use(otelecho.Middleware(deps.ServiceName))
	}
	e.Use(echomiddleware.Recover())
	e.Use(middleware.Context())
	e.Use(middleware.Logger(deps.Logger))
	if len(deps.AllowOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: deps.AllowOrigins}))
	}

	if deps.Health != nil {
		deps.Health.RegisterRoutes(e)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	tag.Register(api.Group("/tag"))
	reference.Register(api.Group("/reference"))
	securities.Register(api.Group("/securities"))
	documents.Register(api.Group("/documents"))

	return e
}
