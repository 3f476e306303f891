package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/api/middleware"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
)

// ProfileHandler proxies the profile-analyzer endpoints.
type ProfileHandler struct {
	client   *gitsphere.Client
	sessions *session.Manager
}

// NewProfileHandler builds the profile handler.
func NewProfileHandler(client *gitsphere.Client, sessions *session.Manager) *ProfileHandler {
	return &ProfileHandler{client: client, sessions: sessions}
}

// Analyze runs a comprehensive profile analysis for a GitHub user.
func (h *ProfileHandler) Analyze(c *gin.Context) {
	username, err := util.ParseUsername(c.Param("username"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	analysis, result, err := h.client.AnalyzeProfile(c.Request.Context(), username, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, analysis)
}

// Get fetches basic profile information for a GitHub user.
func (h *ProfileHandler) Get(c *gin.Context) {
	username, err := util.ParseUsername(c.Param("username"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	profile, result, err := h.client.GetProfile(c.Request.Context(), username, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, profile)
}

// Insights fetches generated insights for a GitHub profile.
func (h *ProfileHandler) Insights(c *gin.Context) {
	username, err := util.ParseUsername(c.Param("username"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	insights, result, err := h.client.GetProfileInsights(c.Request.Context(), username, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, insights)
}

// Repositories lists a user's repositories with an optional limit.
func (h *ProfileHandler) Repositories(c *gin.Context) {
	username, err := util.ParseUsername(c.Param("username"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 100 {
			badRequest(c, "limit must be between 1 and 100")
			return
		}
	}

	repos, result, err := h.client.GetUserRepositories(c.Request.Context(), username, limit, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, repos)
}
