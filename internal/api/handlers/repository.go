package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/api/middleware"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/gitsphere"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/session"
	"github.com/gitsphere-dev/gitsphere-gateway/internal/util"
)

// RepositoryHandler proxies the repository-analyzer endpoints.
type RepositoryHandler struct {
	client   *gitsphere.Client
	sessions *session.Manager
}

// NewRepositoryHandler builds the repository handler.
func NewRepositoryHandler(client *gitsphere.Client, sessions *session.Manager) *RepositoryHandler {
	return &RepositoryHandler{client: client, sessions: sessions}
}

// repoParams validates the owner/repo path parameters.
func repoParams(c *gin.Context) (owner, repo string, err error) {
	return util.ParseRepoRef(c.Param("owner") + "/" + c.Param("repo"))
}

// Analyze runs a comprehensive analysis of one repository.
func (h *RepositoryHandler) Analyze(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	analysis, result, err := h.client.AnalyzeRepository(c.Request.Context(), owner, repo, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, analysis)
}

// Info fetches basic repository metadata.
func (h *RepositoryHandler) Info(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	info, result, err := h.client.GetRepositoryInfo(c.Request.Context(), owner, repo, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, info)
}

// Insights fetches generated insights for a repository.
func (h *RepositoryHandler) Insights(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	insights, result, err := h.client.GetRepositoryInsights(c.Request.Context(), owner, repo, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, insights)
}

// Languages fetches the language byte counts for a repository.
func (h *RepositoryHandler) Languages(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	languages, result, err := h.client.GetRepositoryLanguages(c.Request.Context(), owner, repo, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, languages)
}

// Contributors fetches the contributor list for a repository.
func (h *RepositoryHandler) Contributors(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	contributors, result, err := h.client.GetRepositoryContributors(c.Request.Context(), owner, repo, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, contributors)
}

// File fetches one file's content from a repository.
func (h *RepositoryHandler) File(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	path := c.Param("path")
	if path == "" || path == "/" {
		badRequest(c, "file path is required")
		return
	}
	content, result, err := h.client.GetFileContent(c.Request.Context(), owner, repo, path, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, content)
}

// Tree fetches the trimmed file tree for a repository.
func (h *RepositoryHandler) Tree(c *gin.Context) {
	owner, repo, err := repoParams(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	tree, result, err := h.client.GetRepositoryTree(c.Request.Context(), owner, repo, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, tree)
}

// BulkAnalyze analyzes several repositories in one request.
func (h *RepositoryHandler) BulkAnalyze(c *gin.Context) {
	var refs []gitsphere.RepoRef
	if err := c.ShouldBindJSON(&refs); err != nil {
		badRequest(c, "request body must be an array of {owner, repo} objects")
		return
	}
	if len(refs) > gitsphere.MaxBulkRepositories {
		badRequest(c, fmt.Sprintf("maximum %d repositories allowed per request", gitsphere.MaxBulkRepositories))
		return
	}
	for i := range refs {
		owner, repo, err := util.ParseRepoRef(refs[i].Owner + "/" + refs[i].Repo)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		refs[i].Owner, refs[i].Repo = owner, repo
	}

	bulk, result, err := h.client.BulkAnalyzeRepositories(c.Request.Context(), refs, middleware.SessionToken(c))
	finishProxy(c, h.sessions, result, err, bulk)
}
