package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apeko/appraisal-rag/internal/core/domain"
	"github.com/apeko/appraisal-rag/internal/logger"
)

// errMissingService is returned when the server is built without a RAG service.
var errMissingService = errors.New("httpapi: RAG service is required")

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError aborts the request with the mapped status. Server errors
// are prefixed with what was being attempted, e.g. "Error creating document".
func respondError(c *gin.Context, action string, err error) {
	_ = c.Error(err)
	status := statusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "Error " + action + ": " + detail
		logger.Error("%s %s: %s", c.Request.Method, c.Request.URL.Path, detail)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail})
}

// badRequest aborts with 400 and the given detail.
func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Detail: detail})
}
