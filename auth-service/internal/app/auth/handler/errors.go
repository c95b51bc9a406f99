package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cubcen/auth-service/internal/app/auth/entity"
	"cubcen/auth-service/internal/app/auth/service"
	"cubcen/pkg/logger"
)

var errInvalidBody = service.NewAppError(http.StatusBadRequest, service.CodeValidation, "Invalid request body")

// respondError пишет ErrorResponse и прерывает цепочку.
// Всё, что не AppError, уходит клиенту как INTERNAL_ERROR без подробностей.
func respondError(c *gin.Context, err error) {
	appErr := service.AsAppError(err).WithRequestID(logger.RequestID(c))

	if appErr.Kind == service.KindServer {
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(appErr.Status, entity.ErrorResponse{
		Error:     http.StatusText(appErr.Status),
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: appErr.RequestID,
		Details:   appErr.Details,
	})
}
