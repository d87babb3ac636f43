package utils

import (
	"errors"
	"net/http"

	"pdf-chat-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode string      `json:"error_code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		ErrorCode: errorCode,
		Message:   message,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// StatusForError maps an error kind to an HTTP status. The most specific kind in the
// chain decides, so a chain failure caused by retrieval is reported as a bad gateway.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrQuery), errors.Is(err, apperr.ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, apperr.ErrLoad):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithAppError sends err with the status and error code of its kind.
func RespondWithAppError(c *gin.Context, message string, err error) {
	code := string(apperr.KindOf(err))
	if code == "" {
		code = "internal_error"
	}
	var details interface{}
	if outer := apperr.Outer(err); outer != "" && string(outer) != code {
		details = gin.H{"stage": string(outer)}
	}
	RespondWithError(c, StatusForError(err), code, message, details)
}
