package handler

import (
	"SkyVault/internal/service"
	"SkyVault/utils"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// httpStatusFor maps service errors onto HTTP statuses so clients can tell
// a quota rejection from a name clash without parsing messages.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, service.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	utils.FailWithStatus(c, httpStatusFor(err), err)
}

func currentUserID(c *gin.Context) uint64 {
	return c.MustGet("user_id").(uint64)
}
