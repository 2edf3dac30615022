package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/sales-desk/internal/api/dto"
	"github.com/example/sales-desk/internal/domain"
)

// statusFor maps a domain error to its HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, dto.CodeValidation
	case errors.Is(err, domain.ErrAuthFailure):
		return http.StatusUnauthorized, dto.CodeUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, dto.CodeForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, dto.CodeNotFound
	case errors.Is(err, domain.ErrLastAdmin):
		return http.StatusConflict, dto.CodeLastAdmin
	case errors.Is(err, domain.ErrDuplicateKey):
		return http.StatusConflict, dto.CodeDuplicateKey
	case errors.Is(err, domain.ErrReferentialConflict):
		return http.StatusConflict, dto.CodeReferenced
	case errors.Is(err, domain.ErrStore):
		return http.StatusServiceUnavailable, dto.CodeUnavailable
	}
	return http.StatusInternalServerError, dto.CodeInternal
}

// respondError writes err as a dto.ErrorResponse. Messages of unexpected
// errors are not exposed.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status, code := statusFor(err)
	body := dto.ErrorResponse{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		log.Error("unexpected error", zap.String("path", c.FullPath()), zap.Error(err))
		body = dto.NewInternalError()
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func respondBadRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationError("invalid request body: "+err.Error()))
}
