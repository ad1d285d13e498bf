// Package routes assembles the HTTP API
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sorrel/pkg/middleware"
	"github.com/Ramsey-B/sorrel/pkg/routes/health"
	"github.com/Ramsey-B/sorrel/pkg/routes/runs"
)

// ServerConfig configures the echo instance
type ServerConfig struct {
	AppName      string
	AllowOrigins []string
	AllowMethods []string
}

// NewServer builds the API with its middleware chain and routes
func NewServer(cfg ServerConfig, checker *health.Checker, runHandler *runs.Handler, logger ectologger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	checker.RegisterRoutes(e)
	runHandler.Register(e.Group("/api/v1/runs"))

	return e
}
