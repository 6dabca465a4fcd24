package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Viranshu-30/HippoSync/internal/service"
)

// CreateThread creates a new personal or project thread.
// POST /v1/threads
func (h *Handler) CreateThread(c echo.Context) error {
	requester := requesterID(c)
	if requester == "" {
		return unauthorized(c)
	}

	var body struct {
		Title     string `json:"title"`
		ProjectID string `json:"project_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	thread, err := h.service.CreateThread(c.Request().Context(), &service.CreateThreadRequest{
		RequesterID: requester,
		Title:       body.Title,
		ProjectID:   body.ProjectID,
	})
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, thread)
}

// ListThreads lists the requester's personal threads, or a project's
// threads when project_id is given.
// GET /v1/threads
func (h *Handler) ListThreads(c echo.Context) error {
	requester := requesterID(c)
	if requester == "" {
		return unauthorized(c)
	}

	threads, err := h.service.ListThreads(c.Request().Context(), requester, c.QueryParam("project_id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"threads": threads,
	})
}

// GetThreadMessages retrieves a thread's messages in replay order.
// GET /v1/threads/:thread_id/messages
func (h *Handler) GetThreadMessages(c echo.Context) error {
	requester := requesterID(c)
	if requester == "" {
		return unauthorized(c)
	}

	threadID := c.Param("thread_id")
	limit := 500
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	messages, err := h.service.GetThreadMessages(c.Request().Context(), threadID, requester, limit)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// RenameThread updates a thread's title.
// PUT /v1/threads/:thread_id
func (h *Handler) RenameThread(c echo.Context) error {
	requester := requesterID(c)
	if requester == "" {
		return unauthorized(c)
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&body); err != nil || body.Title == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title is required"})
	}

	if err := h.service.RenameThread(c.Request().Context(), c.Param("thread_id"), requester, body.Title); err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "renamed"})
}

// DeleteThread removes a thread and its messages.
// DELETE /v1/threads/:thread_id
func (h *Handler) DeleteThread(c echo.Context) error {
	requester := requesterID(c)
	if requester == "" {
		return unauthorized(c)
	}

	if err := h.service.DeleteThread(c.Request().Context(), c.Param("thread_id"), requester); err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
