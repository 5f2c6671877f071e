package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hayeon-dev/ai-gallery/api/common"
	"github.com/hayeon-dev/ai-gallery/internal/auth"
)

const ContextUserIDKey = "user_id"

// JWTAuth validates the Bearer access token and stores the user id on the
// request context.
func JWTAuth(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.RespondError(c, http.StatusUnauthorized, "No Authorization request header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			common.RespondError(c, http.StatusUnauthorized, "Authorization field format error")
			c.Abort()
			return
		}

		userID, err := jwtService.ParseAccessToken(parts[1])
		if err != nil {
			common.RespondError(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

// CurrentUserID reads the authenticated user id set by JWTAuth.
func CurrentUserID(c *gin.Context) uint {
	value, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0
	}
	userID, _ := value.(uint)
	return userID
}
