package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	identityKey = "degenecho.identity"

	// DevIdentityHeader names the caller when auth is disabled.
	DevIdentityHeader = "X-Wallet"
)

type Identity struct {
	Key  string
	Role string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// RequireBearerMiddleware resolves the caller identity for /api/ routes.
// Health and docs endpoints stay open.
func RequireBearerMiddleware(verifier JWT, disabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if !strings.HasPrefix(p, "/api/") {
			c.Next()
			return
		}
		if disabled {
			key := strings.TrimSpace(c.GetHeader(DevIdentityHeader))
			if key != "" {
				c.Set(identityKey, Identity{Key: key, Role: strings.TrimSpace(c.GetHeader("X-Role"))})
			}
			c.Next()
			return
		}
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "missing bearer token"})
			return
		}
		claims, err := verifier.Verify(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "invalid bearer token"})
			return
		}
		c.Set(identityKey, Identity{Key: claims.Subject, Role: claims.Role})
		c.Next()
	}
}

func IdentityFromGin(c *gin.Context) (Identity, bool) {
	if c == nil {
		return Identity{}, false
	}
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	id, ok := v.(Identity)
	if !ok || id.Key == "" {
		return Identity{}, false
	}
	return id, true
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromGin(c)
		if !ok || !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "message": "admin role required"})
			return
		}
		c.Next()
	}
}
