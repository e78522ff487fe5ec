package middleware

import (
	"net/http"
	"strings"

	"commhub/internal/auth"
	"commhub/internal/config"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "userID"
	ContextTenantID = "tenantID"
)

// AuthMiddleware validates the bearer token and stores user and tenant IDs
// in the request context. Tenant resolution itself is the identity
// provider's job; we only trust its claims.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		tokenStr := ""
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			// Browsers cannot set headers on websocket upgrades.
			tokenStr = c.Query("token")
		}
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}

		claims, err := auth.ParseToken(tokenStr, config.GetConfig().JWT.Secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextTenantID, claims.TenantID)
		c.Next()
	}
}

// Identity extracts the authenticated user and tenant from the context.
func Identity(c *gin.Context) (userID, tenantID string, ok bool) {
	u, uok := c.Get(ContextUserID)
	t, tok := c.Get(ContextTenantID)
	if !uok || !tok {
		return "", "", false
	}
	return u.(string), t.(string), true
}
