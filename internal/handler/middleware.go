package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joblink/chat-service/internal/auth"
	"github.com/joblink/chat-service/internal/domain"
	"github.com/joblink/chat-service/pkg/log"
)

const (
	identityKey   = "identity"
	authHeaderKey = "Authorization"
	bearerPrefix  = "Bearer "
)

// AuthMiddleware validates bearer credentials on REST requests.
type AuthMiddleware struct {
	verifier auth.Verifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier auth.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth returns a Gin middleware that resolves the caller's identity
// from the Authorization header.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(authHeaderKey)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid authorization format",
			})
			return
		}

		token := strings.TrimPrefix(header, bearerPrefix)
		identity, err := m.verifier.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token",
			})
			return
		}

		c.Set(identityKey, *identity)
		c.Set(log.FieldUserID, identity.ID)
		c.Next()
	}
}

// identityFrom returns the verified identity stored by RequireAuth.
func identityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	identity, ok := v.(domain.Identity)
	return identity, ok
}
