package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/shopdesk-server/internal/auth"
	"github.com/vovakirdan/shopdesk-server/internal/media"
	"github.com/vovakirdan/shopdesk-server/internal/service"
	"github.com/vovakirdan/shopdesk-server/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// OKResponse acknowledges a mutation.
type OKResponse struct {
	OK      bool   `json:"ok"`
	Count   *int64 `json:"count,omitempty"`
	Message string `json:"message,omitempty"`
}

// statusFor maps a service error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusBadRequest, "user already exists"
	case errors.Is(err, auth.ErrInvalidEmail):
		return http.StatusBadRequest, "a valid email is required"
	case errors.Is(err, auth.ErrInvalidPassword):
		return http.StatusBadRequest, "password must be 6 to 72 characters"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, media.ErrNotImage):
		return http.StatusBadRequest, "only image uploads are allowed"
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file is too large"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "already exists"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondError writes err as an ErrorResponse. Only unexpected errors are logged at error level.
func respondError(c *gin.Context, logger *zerolog.Logger, err error, action string) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg(action)
	} else {
		logger.Debug().Err(err).Int("status", status).Msg(action)
	}
	c.JSON(status, ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
