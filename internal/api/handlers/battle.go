package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/api/middleware"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
)

// BattleHandler proxies the profile battle endpoints.
type BattleHandler struct {
	client   *gitsphere.Client
	sessions *session.Manager
}

// NewBattleHandler builds the battle handler.
func NewBattleHandler(client *gitsphere.Client, sessions *session.Manager) *BattleHandler {
	return &BattleHandler{client: client, sessions: sessions}
}

// normalizeUsernames validates every entry and rewrites it to its canonical
// form. Dashboard users paste profile URLs and @mentions as often as bare
// usernames.
func normalizeUsernames(usernames []string) ([]string, error) {
	normalized := make([]string, 0, len(usernames))
	for _, raw := range usernames {
		username, err := util.ParseUsername(raw)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, username)
	}
	return normalized, nil
}

// Start conducts a battle between the requested users.
func (h *BattleHandler) Start(c *gin.Context) {
	var req gitsphere.BattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "usernames are required")
		return
	}

	usernames, err := normalizeUsernames(req.Usernames)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	req.Usernames = usernames

	battle, result, err := h.client.StartBattle(c.Request.Context(), &req, middleware.SessionToken(c))
	if err != nil && result == nil {
		badRequest(c, err.Error())
		return
	}
	finishProxy(c, h.sessions, result, err, battle)
}

// multiBattleRequest is the request body for a multi-user battle.
type multiBattleRequest struct {
	Usernames []string `json:"usernames" binding:"required"`
}

// Multi conducts a multi-user battle with leaderboard output.
func (h *BattleHandler) Multi(c *gin.Context) {
	var req multiBattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "usernames are required")
		return
	}

	usernames, err := normalizeUsernames(req.Usernames)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	battle, result, err := h.client.MultiBattle(c.Request.Context(), usernames, middleware.SessionToken(c))
	if err != nil && result == nil {
		badRequest(c, err.Error())
		return
	}
	finishProxy(c, h.sessions, result, err, battle)
}

// quickBattleRequest is the request body for a 1v1 battle.
type quickBattleRequest struct {
	User1 string `json:"user1" binding:"required"`
	User2 string `json:"user2" binding:"required"`
}

// Quick runs a simplified 1v1 battle.
func (h *BattleHandler) Quick(c *gin.Context) {
	var req quickBattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user1 and user2 are required")
		return
	}

	user1, err := util.ParseUsername(req.User1)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	user2, err := util.ParseUsername(req.User2)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	battle, result, err := h.client.QuickBattle(c.Request.Context(), user1, user2, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, battle)
}

// Category runs a battle focused on one scoring category.
func (h *BattleHandler) Category(c *gin.Context) {
	var req multiBattleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "usernames are required")
		return
	}

	usernames, err := normalizeUsernames(req.Usernames)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	battle, result, err := h.client.CategoryBattle(c.Request.Context(), c.Param("category"), usernames, middleware.SessionToken(c))
	if err != nil && result == nil {
		badRequest(c, err.Error())
		return
	}
	finishProxy(c, h.sessions, result, err, battle)
}

// Types lists the available battle types.
func (h *BattleHandler) Types(c *gin.Context) {
	types, result, err := h.client.BattleTypes(c.Request.Context(), middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, types)
}
