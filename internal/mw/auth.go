package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chair-reservation-backend/internal/auth"
)

const identityKey = "identity"

// TokenParser turns a bearer token into an identity.
type TokenParser interface {
	ParseToken(token string) (auth.Identity, error)
}

// Identify stores the bearer token's identity in the context when one is
// present and valid. Requests without a token pass through anonymously.
func Identify(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.Next()
			return
		}
		id, err := p.ParseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireIdentity rejects anonymous requests.
func RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		c.Next()
	}
}

// RequireRegistered rejects anonymous and guest requests.
func RequireRegistered() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "sign in required"})
			return
		}
		if id.IsGuest {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not available to guests"})
			return
		}
		c.Next()
	}
}

// CurrentIdentity returns the identity set by Identify.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}
