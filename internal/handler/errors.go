package handler

import (
	"errors"
	"net/http"

	"github.com/controla/backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// writeServiceError maps service sentinels to status codes. Anything
// unrecognised is logged and reported as a 500 without detail.
func writeServiceError(c *gin.Context, err error) {
	status, message := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.JSON(status, gin.H{"status": "error", "error": message})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrFeatureNotLicensed):
		return http.StatusForbidden, "feature not licensed"
	case errors.Is(err, service.ErrInstanceLimit):
		return http.StatusForbidden, "instance limit reached"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, "already exists"
	default:
		return http.StatusInternalServerError, "server error"
	}
}
