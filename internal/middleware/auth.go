package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/forum-core/backend/internal/apperr"
	"github.com/emilythestrangee/forum-core/backend/internal/auth"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

// AuthMiddleware resolves the bearer credential of every request and
// rejects the request with 401 when it is missing or invalid.
func AuthMiddleware(identity *auth.IdentityContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := auth.CredentialFromHeader(c.GetHeader("Authorization"))
		userID, err := identity.Resolve(credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": apperr.MessageOf(err),
				"kind":  apperr.KindOf(err),
			})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID returns the user id stored by AuthMiddleware.
func CurrentUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(UserIDKey)
	return userID, userID != ""
}
