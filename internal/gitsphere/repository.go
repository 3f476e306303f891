package gitsphere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// MaxBulkRepositories bounds a single bulk analysis request, matching the
// backend's limit.
const MaxBulkRepositories = 5

// AnalyzeRepository runs a full analysis of an owner/repo pair. Successful
// analyses are cached briefly keyed by the backend path.
func (c *Client) AnalyzeRepository(ctx context.Context, owner, repo, token string) (*RepositoryAnalysis, *Result, error) {
	path := repoPath("analyze", owner, repo)

	if payload, ok := c.analysisCache.Get(path); ok {
		var analysis RepositoryAnalysis
		if err := unmarshalCached(payload, &analysis); err == nil {
			return &analysis, &Result{Body: payload, StatusCode: http.StatusOK}, nil
		}
	}

	var analysis RepositoryAnalysis
	result, err := c.DoJSON(ctx, http.MethodGet, path, nil, nil, token, &analysis)
	if err != nil {
		return nil, result, err
	}
	c.analysisCache.Put(path, result.Body)
	return &analysis, result, nil
}

// GetRepositoryInfo fetches basic metadata for a repository.
func (c *Client) GetRepositoryInfo(ctx context.Context, owner, repo, token string) (*RepositoryInfo, *Result, error) {
	var info RepositoryInfo
	result, err := c.DoJSON(ctx, http.MethodGet, repoPath("info", owner, repo), nil, nil, token, &info)
	if err != nil {
		return nil, result, err
	}
	return &info, result, nil
}

// GetRepositoryInsights fetches generated insights for a repository.
func (c *Client) GetRepositoryInsights(ctx context.Context, owner, repo, token string) (*RepositoryInsights, *Result, error) {
	var insights RepositoryInsights
	result, err := c.DoJSON(ctx, http.MethodGet, repoPath("insights", owner, repo), nil, nil, token, &insights)
	if err != nil {
		return nil, result, err
	}
	return &insights, result, nil
}

// GetRepositoryLanguages fetches the language byte counts for a repository.
func (c *Client) GetRepositoryLanguages(ctx context.Context, owner, repo, token string) (map[string]int64, *Result, error) {
	var languages map[string]int64
	result, err := c.DoJSON(ctx, http.MethodGet, repoPath("languages", owner, repo), nil, nil, token, &languages)
	if err != nil {
		return nil, result, err
	}
	return languages, result, nil
}

// GetRepositoryContributors fetches the contributor list for a repository.
func (c *Client) GetRepositoryContributors(ctx context.Context, owner, repo, token string) ([]Contributor, *Result, error) {
	var contributors []Contributor
	result, err := c.DoJSON(ctx, http.MethodGet, repoPath("contributors", owner, repo), nil, nil, token, &contributors)
	if err != nil {
		return nil, result, err
	}
	return contributors, result, nil
}

// GetFileContent fetches one file's content from a repository.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, filePath, token string) (*FileContent, *Result, error) {
	escaped := make([]string, 0, 4)
	for _, segment := range strings.Split(filePath, "/") {
		if segment == "" {
			continue
		}
		escaped = append(escaped, url.PathEscape(segment))
	}
	path := repoPath("file", owner, repo) + "/" + strings.Join(escaped, "/")

	var content FileContent
	result, err := c.DoJSON(ctx, http.MethodGet, path, nil, nil, token, &content)
	if err != nil {
		return nil, result, err
	}
	return &content, result, nil
}

// GetRepositoryTree fetches the trimmed file tree for a repository.
func (c *Client) GetRepositoryTree(ctx context.Context, owner, repo, token string) (*RepositoryTree, *Result, error) {
	var tree RepositoryTree
	result, err := c.DoJSON(ctx, http.MethodGet, repoPath("tree", owner, repo), nil, nil, token, &tree)
	if err != nil {
		return nil, result, err
	}
	return &tree, result, nil
}

// BulkAnalyzeRepositories analyzes up to MaxBulkRepositories repositories in
// one backend call.
func (c *Client) BulkAnalyzeRepositories(ctx context.Context, refs []RepoRef, token string) (*BulkAnalysisResult, *Result, error) {
	if len(refs) == 0 {
		return nil, nil, fmt.Errorf("at least one repository is required")
	}
	if len(refs) > MaxBulkRepositories {
		return nil, nil, fmt.Errorf("maximum %d repositories allowed per request", MaxBulkRepositories)
	}

	body, err := json.Marshal(refs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal bulk request: %w", err)
	}

	var bulk BulkAnalysisResult
	result, err := c.DoJSON(ctx, http.MethodPost, "/api/v1/repository-analyzer/bulk-analyze", nil, body, token, &bulk)
	if err != nil {
		return nil, result, err
	}
	return &bulk, result, nil
}

// InvalidateRepository drops any cached analysis for the given repository.
func (c *Client) InvalidateRepository(owner, repo string) {
	c.analysisCache.Invalidate(repoPath("analyze", owner, repo))
}

func repoPath(op, owner, repo string) string {
	return "/api/v1/repository-analyzer/" + op + "/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}
