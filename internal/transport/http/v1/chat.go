package v1

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Viranshu-30/HippoSync/internal/service"
)

// maxUploadBytes bounds how much of an uploaded file is read.
const maxUploadBytes = 20 << 20 // 20 MiB

// PostChat runs one chat turn. Accepts a multipart form so a message and
// a file upload can ride in the same request.
// POST /v1/chat
func (h *Handler) PostChat(c echo.Context) error {
	requester := requesterID(c)
	if requester == "" {
		return unauthorized(c)
	}

	req := &service.ChatRequest{
		ThreadID:     c.FormValue("thread_id"),
		RequesterID:  requester,
		ProjectID:    c.FormValue("project_id"),
		Message:      c.FormValue("message"),
		Model:        c.FormValue("model"),
		SystemPrompt: c.FormValue("system_prompt"),
		Temperature:  1.0,
	}
	if t := c.FormValue("temperature"); t != "" {
		val, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid temperature"})
		}
		req.Temperature = val
	}

	upload, err := readUpload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read uploaded file"})
	}
	req.Upload = upload

	if req.Message == "" && req.Upload == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message or file is required"})
	}

	resp, err := h.service.Chat(c.Request().Context(), req)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// readUpload pulls the optional "file" part out of the multipart form.
// Returns (nil, nil) when the request carries no file.
func readUpload(c echo.Context) (*service.Upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		// Plain form posts and multipart posts without a file part both
		// land here.
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, err
	}
	return &service.Upload{Filename: fh.Filename, Data: data}, nil
}
