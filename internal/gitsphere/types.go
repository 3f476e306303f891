// Package gitsphere provides the typed HTTP client for the GitSphere
// analytics backend. The client injects the session token on every request,
// transparently refreshes expired tokens, and retries the original request
// once after a successful refresh.
package gitsphere

import "time"

// GitHubProfile mirrors the backend's profile payload for a GitHub user.
type GitHubProfile struct {
	Login       string    `json:"login"`
	ID          int64     `json:"id"`
	AvatarURL   string    `json:"avatar_url"`
	Name        string    `json:"name,omitempty"`
	Company     string    `json:"company,omitempty"`
	Blog        string    `json:"blog,omitempty"`
	Location    string    `json:"location,omitempty"`
	Email       string    `json:"email,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	PublicRepos int       `json:"public_repos"`
	PublicGists int       `json:"public_gists"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	HTMLURL     string    `json:"html_url"`
}

// ProfileRepository is a repository entry inside a profile analysis.
type ProfileRepository struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description,omitempty"`
	Language        string    `json:"language,omitempty"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	Size            int       `json:"size"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	Topics          []string  `json:"topics,omitempty"`
}

// ProfileActivityMetrics summarizes a user's recent contribution activity.
type ProfileActivityMetrics struct {
	TotalCommits       int `json:"total_commits"`
	RecentCommits      int `json:"recent_commits"`
	ContributionStreak int `json:"contribution_streak"`
	ActiveDays         int `json:"active_days"`
}

// LanguageStats aggregates language usage across a user's repositories.
type LanguageStats struct {
	Languages              map[string]int64 `json:"languages"`
	PrimaryLanguage        string           `json:"primary_language,omitempty"`
	LanguageDiversityScore float64          `json:"language_diversity_score"`
}

// ProfileStats carries aggregate statistics for a user's account.
type ProfileStats struct {
	TotalStars               int     `json:"total_stars"`
	TotalForks               int     `json:"total_forks"`
	TotalRepos               int     `json:"total_repos"`
	AvgStarsPerRepo          float64 `json:"avg_stars_per_repo"`
	FollowerToFollowingRatio float64 `json:"follower_to_following_ratio"`
	AccountAgeDays           int     `json:"account_age_days"`
}

// ProfileAnalysis is the full profile analysis document produced by the backend.
type ProfileAnalysis struct {
	Profile           GitHubProfile          `json:"profile"`
	Repositories      []ProfileRepository    `json:"repositories"`
	Stats             ProfileStats           `json:"stats"`
	LanguageStats     LanguageStats          `json:"language_stats"`
	ActivityMetrics   ProfileActivityMetrics `json:"activity_metrics"`
	TopRepositories   []ProfileRepository    `json:"top_repositories"`
	AnalysisTimestamp time.Time              `json:"analysis_timestamp"`
}

// ProfileInsights carries generated insights for a profile.
type ProfileInsights struct {
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areas_for_improvement"`
	DeveloperType       string   `json:"developer_type"`
	ExperienceLevel     string   `json:"experience_level"`
	Recommendations     []string `json:"recommendations"`
}

// UserRepositories is the paged repository listing for a user.
type UserRepositories struct {
	Repositories []ProfileRepository `json:"repositories"`
	TotalCount   int                 `json:"total_count"`
	Limited      bool                `json:"limited"`
}

// RepositoryInfo mirrors the backend's repository metadata payload.
type RepositoryInfo struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Description     string    `json:"description,omitempty"`
	HTMLURL         string    `json:"html_url"`
	Language        string    `json:"language,omitempty"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	WatchersCount   int       `json:"watchers_count"`
	Size            int       `json:"size"`
	OpenIssuesCount int       `json:"open_issues_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	PushedAt        time.Time `json:"pushed_at"`
	Topics          []string  `json:"topics,omitempty"`
}

// Contributor is a repository contributor entry.
type Contributor struct {
	Login         string `json:"login"`
	ID            int64  `json:"id"`
	AvatarURL     string `json:"avatar_url"`
	Contributions int    `json:"contributions"`
	HTMLURL       string `json:"html_url"`
}

// CommitInfo is a single commit in a repository analysis.
type CommitInfo struct {
	SHA       string         `json:"sha"`
	Author    map[string]any `json:"author"`
	Message   string         `json:"message"`
	Date      time.Time      `json:"date"`
	Additions int            `json:"additions,omitempty"`
	Deletions int            `json:"deletions,omitempty"`
}

// CodeQualityMetrics summarizes documentation and testing signals.
type CodeQualityMetrics struct {
	TotalLines            int     `json:"total_lines"`
	DocumentationCoverage float64 `json:"documentation_coverage"`
	TestCoverageEstimate  float64 `json:"test_coverage_estimate"`
	HasReadme             bool    `json:"has_readme"`
	HasLicense            bool    `json:"has_license"`
	HasContributingGuide  bool    `json:"has_contributing_guide"`
	HasTests              bool    `json:"has_tests"`
}

// RepoActivityMetrics summarizes commit and issue activity for a repository.
type RepoActivityMetrics struct {
	TotalCommits               int     `json:"total_commits"`
	RecentCommits30Days        int     `json:"recent_commits_30_days"`
	CommitFrequency            float64 `json:"commit_frequency"`
	ContributorCount           int     `json:"contributor_count"`
	IssueResolutionRate        float64 `json:"issue_resolution_rate"`
	AverageIssueResolutionTime float64 `json:"average_issue_resolution_time,omitempty"`
}

// RepositoryHealth is the backend's health assessment for a repository.
type RepositoryHealth struct {
	HealthScore         float64 `json:"health_score"`
	MaintenanceStatus   string  `json:"maintenance_status"`
	CommunityEngagement float64 `json:"community_engagement"`
	CodeQualityScore    float64 `json:"code_quality_score"`
}

// RepositoryAnalysis is the full analysis document for a repository.
type RepositoryAnalysis struct {
	Repository        RepositoryInfo      `json:"repository"`
	Languages         map[string]int64    `json:"languages"`
	Contributors      []Contributor       `json:"contributors"`
	RecentCommits     []CommitInfo        `json:"recent_commits"`
	IssuesSummary     map[string]int      `json:"issues_summary"`
	CodeQuality       CodeQualityMetrics  `json:"code_quality"`
	ActivityMetrics   RepoActivityMetrics `json:"activity_metrics"`
	HealthAssessment  RepositoryHealth    `json:"health_assessment"`
	AnalysisTimestamp time.Time           `json:"analysis_timestamp"`
}

// RepositoryInsights carries generated insights for a repository.
type RepositoryInsights struct {
	Strengths       []string `json:"strengths"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
	TechnologyStack []string `json:"technology_stack"`
	ProjectType     string   `json:"project_type"`
	MaturityLevel   string   `json:"maturity_level"`
}

// FileContent is the content of a single repository file.
type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// TreeEntry is one node of a repository file tree.
type TreeEntry struct {
	Path string `json:"path"`
	Type string `json:"type"`
	Size int    `json:"size,omitempty"`
}

// RepositoryTree is the backend's trimmed file tree listing.
type RepositoryTree struct {
	Repository string      `json:"repository"`
	Tree       []TreeEntry `json:"tree"`
}

// RepoRef identifies a repository in a bulk analysis request.
type RepoRef struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// BulkAnalysisEntry is one repository's outcome in a bulk analysis.
type BulkAnalysisEntry struct {
	Repository string              `json:"repository"`
	Analysis   *RepositoryAnalysis `json:"analysis,omitempty"`
	Error      string              `json:"error,omitempty"`
	Status     string              `json:"status"`
}

// BulkAnalysisResult is the response for a bulk repository analysis.
type BulkAnalysisResult struct {
	Analyses      []BulkAnalysisEntry `json:"analyses"`
	TotalAnalyzed int                 `json:"total_analyzed"`
}

// BattleScore is one participant's scored result.
type BattleScore struct {
	Total       float64        `json:"total"`
	Activity    float64        `json:"activity"`
	Quality     float64        `json:"quality"`
	Impact      float64        `json:"impact"`
	Consistency float64        `json:"consistency"`
	Breakdown   map[string]any `json:"breakdown"`
}

// BattleParticipant is one user competing in a battle.
type BattleParticipant struct {
	Username        string          `json:"username"`
	ProfileAnalysis ProfileAnalysis `json:"profile_analysis"`
	BattleScore     BattleScore     `json:"battle_score"`
	Rank            int             `json:"rank"`
}

// BattleComparison compares one metric between two participants.
type BattleComparison struct {
	Metric            string `json:"metric"`
	Winner            string `json:"winner"`
	Participant1Value any    `json:"participant1_value"`
	Participant2Value any    `json:"participant2_value"`
	Difference        string `json:"difference"`
}

// BattleResult is the outcome of a head-to-head profile battle.
type BattleResult struct {
	BattleID        string              `json:"battle_id"`
	Participants    []BattleParticipant `json:"participants"`
	Winner          string              `json:"winner"`
	Comparisons     []BattleComparison  `json:"comparisons"`
	Insights        []string            `json:"insights"`
	Recommendations map[string][]string `json:"recommendations"`
	BattleTimestamp time.Time           `json:"battle_timestamp"`
}

// BattleRequest starts a battle between two or more users.
type BattleRequest struct {
	Usernames       []string `json:"usernames"`
	BattleType      string   `json:"battle_type,omitempty"`
	IncludeInsights bool     `json:"include_insights"`
}

// MultiBattleResult is the outcome of a multi-user battle with leaderboard.
type MultiBattleResult struct {
	BattleID        string              `json:"battle_id"`
	Participants    []BattleParticipant `json:"participants"`
	Leaderboard     []map[string]any    `json:"leaderboard"`
	CategoryWinners map[string]string   `json:"category_winners"`
	OverallInsights []string            `json:"overall_insights"`
	BattleTimestamp time.Time           `json:"battle_timestamp"`
}

// QuickBattleResult is the trimmed response for a quick 1v1 battle.
type QuickBattleResult struct {
	Winner      string             `json:"winner"`
	Scores      map[string]float64 `json:"scores"`
	KeyInsights []string           `json:"key_insights"`
	BattleID    string             `json:"battle_id"`
}

// HealthStatus is the backend's health probe response.
type HealthStatus struct {
	Status  string `json:"status"`
	Service string `json:"service,omitempty"`
	Version string `json:"version,omitempty"`
}
