package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// LecturerAuth enforces bearer JWT tokens on lecturer-only routes.
// The verified lecturer id is exposed as "lecturer_id" on the context.
func LecturerAuth(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
			return
		}
		c.Set("lecturer_id", claims.Subject)
		c.Next()
	}
}
