// Package v1 provides HTTP handlers for the chat backend's public API.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Viranshu-30/HippoSync/internal/domain"
	"github.com/Viranshu-30/HippoSync/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the public routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat API
	e.POST("/v1/chat", h.PostChat)

	// Thread API
	e.POST("/v1/threads", h.CreateThread)
	e.GET("/v1/threads", h.ListThreads)
	e.GET("/v1/threads/:thread_id/messages", h.GetThreadMessages)
	e.PUT("/v1/threads/:thread_id", h.RenameThread)
	e.DELETE("/v1/threads/:thread_id", h.DeleteThread)

	// Model API
	e.GET("/v1/models", h.ListModels)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// ListModels lists the models exposed by the completion provider.
// GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.service.ListModels(c.Request().Context())
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": models,
	})
}

// requesterID extracts the authenticated caller's id, established by the
// auth layer in front of this service. Returns "" when absent.
func requesterID(c echo.Context) string {
	return c.Request().Header.Get("X-User-ID")
}

// errorJSON maps service errors to HTTP status codes.
func (h *Handler) errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrThreadNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrAccessDenied):
		status = http.StatusForbidden
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing X-User-ID header"})
}
