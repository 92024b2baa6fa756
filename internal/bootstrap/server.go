package bootstrap

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	httpecho "github.com/mohammadpnp/identity-migration/internal/interfaces/http/echo"
	"github.com/mohammadpnp/identity-migration/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func NewHTTPServer(logger zerolog.Logger, migrationHandler *httpecho.MigrationHandler, accountHandler *httpecho.AccountHandler) *echo.Echo {
	observability.RegisterMetrics()

	server := echo.New()
	server.HideBanner = true
	server.HidePort = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit("1M"))
	server.Use(observability.RequestLogger(logger))

	httpecho.RegisterRoutes(server, migrationHandler, accountHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	server.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return server
}
