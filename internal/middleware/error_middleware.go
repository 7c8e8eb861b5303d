package middleware

import (
	"errors"
	"net/http"

	"agency-portal/internal/transport/httpdto"
	portal_errors "agency-portal/pkg/errors"
	"agency-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Errorf("request error: %s", err.Error())
		}

		status, code := statusFor(err)
		c.JSON(status, httpdto.NewErrorResponse(err.Error(), code))
	}
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, portal_errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, portal_errors.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, portal_errors.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, portal_errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, portal_errors.ErrAlreadyExists), errors.Is(err, portal_errors.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, portal_errors.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "TOO_LARGE"
	case errors.Is(err, portal_errors.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA"
	case errors.Is(err, portal_errors.ErrRateLimited):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
