package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// ErrMessage is the body of every authentication failure. Callers cannot
// tell a missing token from an expired or forged one.
const ErrMessage = "invalid or expired token"

// Bearer enforces HS256 session tokens and stores the claims on the context.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMessage})
			return
		}
		claims, err := Parse(strings.TrimSpace(authz[len("bearer "):]), signingKey, issuer)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrMessage})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// FromContext returns the claims set by Bearer.
func FromContext(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}
