package handler

import (
	"LingoChat/internal/service"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope of every JSON API reply.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func respondFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Message: message,
	})
}

// respondError maps a service error to its HTTP status. Persistence causes
// are logged and never shown to the caller.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		logger.Error("unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		respondFailure(c, http.StatusInternalServerError, "internal server error")
		return
	}

	switch svcErr.Code {
	case service.ErrorValidation:
		respondFailure(c, http.StatusBadRequest, svcErr.Reason)
	case service.ErrorNotFound:
		respondFailure(c, http.StatusNotFound, svcErr.Reason)
	default:
		logger.Error(svcErr.Reason, zap.String("path", c.FullPath()), zap.Error(svcErr.Err))
		respondFailure(c, http.StatusInternalServerError, svcErr.Reason)
	}
}
