package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"

	"github.com/gin-gonic/gin"
)

const ClaimsKey = "claims"

// RequireBearer rejects requests without a valid "Authorization: Bearer" token.
// When roles are given the token's role must be one of them.
func RequireBearer(auth *services.AuthService, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := auth.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
