package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StatusFor maps a domain error code to an HTTP status
func StatusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeUnauthenticated:
		return http.StatusUnauthorized
	case apperr.CodePermissionDenied:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeTransientIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes err as JSON and stops the handler chain. Causes of
// domain errors and unclassified errors are never exposed to the client.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var de *apperr.DomainError
	if errors.As(err, &de) {
		c.AbortWithStatusJSON(StatusFor(err), ErrorResponse{Error: de.Message, Code: de.Code})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
}
