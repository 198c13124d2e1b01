package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynhne/user-auth/internal/core/session"
	"github.com/duynhne/user-auth/internal/logger"
)

// SessionMiddleware loads the caller's cookie session and stores it in the
// request context for handlers (see session.FromContext).
func SessionMiddleware(manager *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		sess, err := manager.Load(ctx, c.Writer, c.Request)
		if err != nil {
			logger.FromContext(ctx).Error().Err(err).Msg("Session load failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Request = c.Request.WithContext(session.NewContext(ctx, sess))
		c.Next()
	}
}
