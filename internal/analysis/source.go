package analysis

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// RepoMetadata is what the hosted-repository API reports about a repo.
type RepoMetadata struct {
	Name        string
	Description string
	Language    string
	Size        int // kilobytes
	Topics      []string
	CreatedAt   time.Time
	PushedAt    time.Time
}

// MetadataSource is a read-only hosted-repository API.
type MetadataSource interface {
	Repository(ctx context.Context, owner, repo string) (*RepoMetadata, error)
	// Languages maps language name to bytes of code.
	Languages(ctx context.Context, owner, repo string) (map[string]int, error)
	// RootContents lists the names of entries at the repository root.
	RootContents(ctx context.Context, owner, repo string) ([]string, error)
}

// APIError is a non-2xx answer from the metadata API. Anything else a
// MetadataSource returns is treated as a transport failure.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("metadata API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("metadata API returned status %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports a rate-limit or auth-denied answer.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests
}

var gitSuffix = regexp.MustCompile(`\.git$`)

// ParseGitHubURL extracts owner and repository from https or ssh style
// GitHub URLs.
func ParseGitHubURL(rawURL string) (owner, repo string, ok bool) {
	clean := gitSuffix.ReplaceAllString(strings.TrimSpace(rawURL), "")
	var rest string
	switch {
	case strings.Contains(clean, "github.com/"):
		rest = strings.SplitN(clean, "github.com/", 2)[1]
	case strings.Contains(clean, "github.com:"):
		rest = strings.SplitN(clean, "github.com:", 2)[1]
	default:
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
