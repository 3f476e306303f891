// Package middleware provides HTTP middleware components for the gateway
// server: session authentication and detailed request logging.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
)

// sessionTokenKey is the Gin context key holding the request's session token.
const sessionTokenKey = "__session_token__"

// RequireSession rejects requests that carry no session token.
// The token itself is validated by the analytics backend on every call; the
// gateway only checks presence so unauthenticated dashboard requests fail
// fast without a backend round trip.
func RequireSession(mgr *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := mgr.Token(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"detail": "Authentication required. Please sign in with GitHub.",
			})
			return
		}
		c.Set(sessionTokenKey, token)
		c.Next()
	}
}

// SessionToken returns the token RequireSession stored for this request.
func SessionToken(c *gin.Context) string {
	if v, ok := c.Get(sessionTokenKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
