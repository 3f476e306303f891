package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	log "github.com/sirupsen/logrus"
)

// finishProxy completes a proxied backend call: it propagates token rotation
// to the browser, maps backend failures onto the dashboard's error envelope,
// and otherwise writes the decoded payload.
func finishProxy(c *gin.Context, sessions *session.Manager, result *gitsphere.Result, err error, payload any) {
	if result != nil && result.NewToken != "" {
		sessions.Write(c, result.NewToken)
		c.Header(gitsphere.HeaderNewToken, result.NewToken)
		c.Header(gitsphere.HeaderTokenRefreshed, "true")
	}

	if err != nil {
		writeProxyError(c, sessions, err)
		return
	}

	if result != nil && result.StatusCode == http.StatusUnauthorized {
		// Refresh already failed inside the client; the session is gone.
		sessions.Clear(c)
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Session expired. Please sign in again."})
		return
	}

	c.JSON(http.StatusOK, payload)
}

// writeProxyError converts a backend or transport failure into a response.
func writeProxyError(c *gin.Context, sessions *session.Manager, err error) {
	var apiErr *gitsphere.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			sessions.Clear(c)
		}
		c.JSON(apiErr.StatusCode, gin.H{"detail": apiErr.Detail})
		return
	}
	log.Errorf("backend request failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"detail": "Analytics backend is unavailable"})
}

// badRequest writes a 400 with the dashboard's error envelope.
func badRequest(c *gin.Context, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{"detail": detail})
}
