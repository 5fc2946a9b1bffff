package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/justsurfingit/job-funnel-tracker/internal/repository"
	"github.com/justsurfingit/job-funnel-tracker/internal/services"
	"github.com/justsurfingit/job-funnel-tracker/internal/stages"
)

// respondError maps service and storage errors to a status code and the
// {"error": ...} body every endpoint uses.
func respondError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal server error"
	switch {
	case errors.Is(err, services.ErrUnsupportedResume):
		status, msg = http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, services.ErrValidation), errors.Is(err, stages.ErrInvalidStatus):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, repository.ErrNotFound):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, repository.ErrConflict):
		status, msg = http.StatusConflict, "the record was changed by another request, retry"
	case errors.Is(err, repository.ErrDuplicate):
		status, msg = http.StatusConflict, "already exists"
	case errors.Is(err, services.ErrAIUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, services.ErrAIResponse):
		status, msg = http.StatusBadGateway, err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "request timed out"
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Any("error", err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
}
