package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"safesphere/internal/model"
)

// SessionAuth enforces a bearer token whose subject is the email of the
// workspace's current session. current is called per request.
func SessionAuth(signingKey, issuer string, current func() *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		user := current()
		if user == nil || user.Email != claims.Subject {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
			return
		}
		c.Set("user", *user)
		c.Next()
	}
}
