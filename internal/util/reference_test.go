package util

import "testing"

func TestParseUsername(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"bare login", "torvalds", "torvalds", false},
		{"mention", "@torvalds", "torvalds", false},
		{"profile url", "https://github.com/torvalds", "torvalds", false},
		{"profile url trailing slash", "github.com/torvalds/", "torvalds", false},
		{"profile url with query", "https://github.com/torvalds?tab=repositories", "torvalds", false},
		{"whitespace", "  octocat  ", "octocat", false},
		{"hyphenated", "my-user-1", "my-user-1", false},
		{"empty", "", "", true},
		{"double hyphen", "a--b", "", true},
		{"leading hyphen", "-abc", "", true},
		{"too long", "a123456789a123456789a123456789a123456789", "", true},
		{"path traversal", "../etc", "", true},
		{"repo path", "github.com/owner/repo", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseUsername(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseUsername(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRepoRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"plain", "golang/go", "golang", "go", false},
		{"url", "https://github.com/golang/go", "golang", "go", false},
		{"url with git suffix", "https://github.com/golang/go.git", "golang", "go", false},
		{"trailing slash", "github.com/gin-gonic/gin/", "gin-gonic", "gin", false},
		{"dotted repo", "torvalds/linux.github.io", "torvalds", "linux.github.io", false},
		{"empty", "", "", "", true},
		{"owner only", "golang", "", "", true},
		{"bad owner", "-x/go", "", "", true},
		{"hidden repo", "golang/.github", "", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			owner, repo, err := ParseRepoRef(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRepoRef(%q) error = %v, wantErr %t", tt.input, err, tt.wantErr)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("ParseRepoRef(%q) = %q/%q, want %q/%q", tt.input, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}
