package middleware

import (
	"github.com/gin-gonic/gin"

	"inventra/internal/core/security"
)

// UserContext copies the authenticated user ID from the gin context
// into the request context, where the domain layer reads it through
// security.GetUserID. Must be installed after Auth, which sets
// "user_id".
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid, ok := c.Get("user_id"); ok {
			if s, ok := uid.(string); ok && s != "" {
				c.Request = c.Request.WithContext(security.WithUserID(c.Request.Context(), s))
			}
		}
		c.Next()
	}
}
