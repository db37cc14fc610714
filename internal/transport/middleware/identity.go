package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OwnerHeader carries the caller identity set by the auth gateway.
const OwnerHeader = "X-User-Email"

const ownerKey = "owner"

// RequireOwner rejects requests without an owner identity.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := strings.TrimSpace(c.GetHeader(OwnerHeader))
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"kind":    "unauthorized",
				"error":   "missing " + OwnerHeader + " header",
			})
			return
		}

		c.Set(ownerKey, owner)
		c.Next()
	}
}

// Owner returns the identity stored by RequireOwner.
func Owner(c *gin.Context) string {
	return c.GetString(ownerKey)
}
