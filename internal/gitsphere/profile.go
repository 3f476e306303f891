package gitsphere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AnalyzeProfile runs a full profile analysis for a GitHub user.
// Successful analyses are cached briefly so repeated dashboard loads do not
// re-trigger the backend's expensive GitHub crawling.
func (c *Client) AnalyzeProfile(ctx context.Context, username, token string) (*ProfileAnalysis, *Result, error) {
	path := "/api/v1/profile-analyzer/analyze/" + url.PathEscape(username)

	if payload, ok := c.analysisCache.Get(path); ok {
		var analysis ProfileAnalysis
		if err := unmarshalCached(payload, &analysis); err == nil {
			return &analysis, &Result{Body: payload, StatusCode: http.StatusOK}, nil
		}
	}

	var analysis ProfileAnalysis
	result, err := c.DoJSON(ctx, http.MethodGet, path, nil, nil, token, &analysis)
	if err != nil {
		return nil, result, err
	}
	c.analysisCache.Put(path, result.Body)
	return &analysis, result, nil
}

// GetProfile fetches basic profile information for a GitHub user.
func (c *Client) GetProfile(ctx context.Context, username, token string) (*GitHubProfile, *Result, error) {
	var profile GitHubProfile
	result, err := c.DoJSON(ctx, http.MethodGet, "/api/v1/profile-analyzer/profile/"+url.PathEscape(username), nil, nil, token, &profile)
	if err != nil {
		return nil, result, err
	}
	return &profile, result, nil
}

// GetProfileInsights fetches generated insights for a GitHub profile.
func (c *Client) GetProfileInsights(ctx context.Context, username, token string) (*ProfileInsights, *Result, error) {
	var insights ProfileInsights
	result, err := c.DoJSON(ctx, http.MethodGet, "/api/v1/profile-analyzer/insights/"+url.PathEscape(username), nil, nil, token, &insights)
	if err != nil {
		return nil, result, err
	}
	return &insights, result, nil
}

// GetUserRepositories lists a user's repositories. A limit of 0 returns all.
func (c *Client) GetUserRepositories(ctx context.Context, username string, limit int, token string) (*UserRepositories, *Result, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": []string{strconv.Itoa(limit)}}
	}

	var repos UserRepositories
	result, err := c.DoJSON(ctx, http.MethodGet, "/api/v1/profile-analyzer/repositories/"+url.PathEscape(username), query, nil, token, &repos)
	if err != nil {
		return nil, result, err
	}
	return &repos, result, nil
}

// InvalidateProfile drops any cached analysis for the given user so the next
// request recomputes it.
func (c *Client) InvalidateProfile(username string) {
	c.analysisCache.Invalidate("/api/v1/profile-analyzer/analyze/" + url.PathEscape(username))
}

func unmarshalCached(payload []byte, out any) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty cached payload")
	}
	return json.Unmarshal(payload, out)
}
