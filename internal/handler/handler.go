package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"PasteBox/internal/service"
	"PasteBox/utils"

	"github.com/gin-gonic/gin"
)

// Handler serves the HTTP API on top of a FileService.
type Handler struct {
	files          *service.FileService
	maxUploadBytes int64
	log            *slog.Logger
}

func New(files *service.FileService, maxUploadBytes int64, log *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 100 << 20
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{files: files, maxUploadBytes: maxUploadBytes, log: log}
}

// StatusFor maps a service error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrGone), errors.Is(err, service.ErrExpired):
		return http.StatusGone
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPasswordRequired):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrIncorrectPassword):
		return http.StatusForbidden
	case service.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "err", err)
		if status == http.StatusInternalServerError {
			err = errors.New("internal server error")
		}
	}
	utils.Fail(c, status, err)
}

func badRequest(c *gin.Context, msg string) {
	utils.Fail(c, http.StatusBadRequest, errors.New(msg))
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}
