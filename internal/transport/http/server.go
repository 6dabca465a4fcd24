// Package http provides the HTTP server for the chat backend.
package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Viranshu-30/HippoSync/internal/service"
	v1 "github.com/Viranshu-30/HippoSync/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server. This server
// handles chat turns, thread management, and model listing.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requireIdentity)

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}

// requireIdentity rejects requests without the X-User-ID header set by
// the auth layer in front of this service. Health and model listing are
// exempt.
func requireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path
		if path == "/health" || strings.HasPrefix(path, "/v1/models") {
			return next(c)
		}
		if c.Request().Header.Get("X-User-ID") == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing X-User-ID header"})
		}
		return next(c)
	}
}
