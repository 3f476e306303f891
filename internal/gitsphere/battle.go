package gitsphere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Battle participant limits, matching the backend's validation.
const (
	MinBattleParticipants      = 2
	MaxBattleParticipants      = 5
	MaxMultiBattleParticipants = 10
)

// validBattleTypes are the categories the backend can score on.
var validBattleTypes = map[string]struct{}{
	"comprehensive": {},
	"technical":     {},
	"social":        {},
	"activity":      {},
}

// StartBattle conducts a profile battle between the requested users.
func (c *Client) StartBattle(ctx context.Context, req *BattleRequest, token string) (*BattleResult, *Result, error) {
	if err := validateBattleRequest(req); err != nil {
		return nil, nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal battle request: %w", err)
	}

	var battle BattleResult
	result, err := c.DoJSON(ctx, http.MethodPost, "/api/v1/battle/start", nil, body, token, &battle)
	if err != nil {
		return nil, result, err
	}
	return &battle, result, nil
}

// MultiBattle conducts a multi-user battle with leaderboard and category
// breakdowns.
func (c *Client) MultiBattle(ctx context.Context, usernames []string, token string) (*MultiBattleResult, *Result, error) {
	if len(usernames) < MinBattleParticipants {
		return nil, nil, fmt.Errorf("at least %d usernames required", MinBattleParticipants)
	}
	if len(usernames) > MaxMultiBattleParticipants {
		return nil, nil, fmt.Errorf("maximum %d users allowed per multi-battle", MaxMultiBattleParticipants)
	}

	body, err := json.Marshal(map[string][]string{"usernames": usernames})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal multi-battle request: %w", err)
	}

	var battle MultiBattleResult
	result, err := c.DoJSON(ctx, http.MethodPost, "/api/v1/battle/multi-battle", nil, body, token, &battle)
	if err != nil {
		return nil, result, err
	}
	return &battle, result, nil
}

// QuickBattle runs a simplified 1v1 battle between two users.
func (c *Client) QuickBattle(ctx context.Context, user1, user2, token string) (*QuickBattleResult, *Result, error) {
	body, err := json.Marshal(map[string]string{"user1": user1, "user2": user2})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal quick-battle request: %w", err)
	}

	var battle QuickBattleResult
	result, err := c.DoJSON(ctx, http.MethodPost, "/api/v1/battle/quick-battle", nil, body, token, &battle)
	if err != nil {
		return nil, result, err
	}
	return &battle, result, nil
}

// CategoryBattle runs a battle focused on one scoring category.
func (c *Client) CategoryBattle(ctx context.Context, category string, usernames []string, token string) (*BattleResult, *Result, error) {
	if category != "technical" && category != "social" && category != "activity" {
		return nil, nil, fmt.Errorf("invalid category %q: choose technical, social, or activity", category)
	}

	body, err := json.Marshal(map[string][]string{"usernames": usernames})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal category-battle request: %w", err)
	}

	var battle BattleResult
	result, err := c.DoJSON(ctx, http.MethodPost, "/api/v1/battle/category-battle/"+url.PathEscape(category), nil, body, token, &battle)
	if err != nil {
		return nil, result, err
	}
	return &battle, result, nil
}

// BattleTypes fetches the available battle types and their descriptions.
func (c *Client) BattleTypes(ctx context.Context, token string) (map[string]any, *Result, error) {
	var types map[string]any
	result, err := c.DoJSON(ctx, http.MethodGet, "/api/v1/battle/battle-types", nil, nil, token, &types)
	if err != nil {
		return nil, result, err
	}
	return types, result, nil
}

func validateBattleRequest(req *BattleRequest) error {
	if req == nil {
		return fmt.Errorf("battle request is required")
	}
	if len(req.Usernames) < MinBattleParticipants {
		return fmt.Errorf("at least %d usernames required", MinBattleParticipants)
	}
	if len(req.Usernames) > MaxBattleParticipants {
		return fmt.Errorf("maximum %d users allowed per battle", MaxBattleParticipants)
	}
	if req.BattleType != "" {
		if _, ok := validBattleTypes[req.BattleType]; !ok {
			return fmt.Errorf("invalid battle type %q", req.BattleType)
		}
	}
	return nil
}
