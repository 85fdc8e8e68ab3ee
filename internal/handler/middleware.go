package handler

import (
	"SkyVault/internal/repo"
	"SkyVault/internal/service"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware enforces the per-user request budget. Rejected
// requests get a 429 and never consume budget.
func RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUserID(c)
		if err := service.AllowRequest(repo.Db, userID, time.Now()); err != nil {
			if errors.Is(err, service.ErrRateLimited) {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				c.Abort()
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}
