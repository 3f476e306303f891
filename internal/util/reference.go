package util

import (
	"fmt"
	"regexp"
	"strings"
)

// usernamePattern follows GitHub's login rules: alphanumeric segments separated
// by single hyphens, no leading or trailing hyphen. Length is checked separately
// because RE2 cannot express the 39-character cap together with the hyphen rule.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z\d](?:-?[a-zA-Z\d])*$`)

const maxUsernameLen = 39

func validUsername(s string) bool {
	return len(s) <= maxUsernameLen && usernamePattern.MatchString(s)
}

// profileURLPattern extracts the login from a pasted profile URL such as
// "https://github.com/torvalds" or "github.com/torvalds/".
var profileURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([^/?#]+)/?(?:[?#].*)?$`)

// repoRefPattern matches "owner/repo" with or without a github.com prefix.
var repoRefPattern = regexp.MustCompile(`^(?:(?:https?://)?(?:www\.)?github\.com/)?([^/?#]+)/([^/?#]+?)(?:\.git)?/?(?:[?#].*)?$`)

// ParseUsername normalizes free-form user input into a GitHub login.
// It accepts a bare login, an "@login" mention, or a full profile URL.
func ParseUsername(input string) (string, error) {
	candidate := strings.TrimSpace(input)
	if candidate == "" {
		return "", fmt.Errorf("username is empty")
	}
	if m := profileURLPattern.FindStringSubmatch(candidate); m != nil {
		candidate = m[1]
	}
	candidate = strings.TrimPrefix(candidate, "@")
	if !validUsername(candidate) {
		return "", fmt.Errorf("invalid username %q", input)
	}
	return candidate, nil
}

// ParseRepoRef normalizes free-form input into an owner and repository pair.
// It accepts "owner/repo" or a full repository URL, with an optional .git suffix.
func ParseRepoRef(input string) (owner, repo string, err error) {
	candidate := strings.TrimSpace(input)
	if candidate == "" {
		return "", "", fmt.Errorf("repository reference is empty")
	}
	m := repoRefPattern.FindStringSubmatch(candidate)
	if m == nil {
		return "", "", fmt.Errorf("invalid repository reference %q", input)
	}
	owner, repo = m[1], m[2]
	if !validUsername(owner) {
		return "", "", fmt.Errorf("invalid repository owner %q", owner)
	}
	if repo == "" || strings.HasPrefix(repo, ".") {
		return "", "", fmt.Errorf("invalid repository name %q", repo)
	}
	return owner, repo, nil
}
