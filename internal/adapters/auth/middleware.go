package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/domain"
)

const userKey = "auth_user"

// BearerToken extracts the credential from the Authorization header, falling
// back to the token query parameter for browser WebSocket clients that cannot
// set headers.
func BearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

// Protect rejects the request before any handler runs when the credential
// does not resolve to a live account.
func Protect(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := resolver.Resolve(c.Request.Context(), BearerToken(c))
		if err != nil {
			log.Warn().Str("module", "adapters.auth").Str("path", c.FullPath()).Msg("rejected unauthenticated request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authorized"})
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser returns the identity Protect attached to the request.
func CurrentUser(c *gin.Context) *domain.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*domain.User); ok {
			return u
		}
	}
	return nil
}
