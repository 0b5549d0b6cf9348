package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"

	"github.com/bgdnvk/wpdeploy/internal/analysis"
)

// Client reads repository metadata and workflow runs from the GitHub API.
// It implements analysis.MetadataSource.
type Client struct {
	client *github.Client
}

// NewClient creates a client. The token is optional for public repos. An
// empty apiURL uses api.github.com; a zero timeout leaves requests bounded
// only by their context.
func NewClient(token, apiURL string, timeout time.Duration) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = timeout
	}

	client := github.NewClient(httpClient)
	if apiURL != "" {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		base, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API url %q: %w", apiURL, err)
		}
		client.BaseURL = base
	}

	return &Client{client: client}, nil
}

func (c *Client) Repository(ctx context.Context, owner, repo string) (*analysis.RepoMetadata, error) {
	r, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, classify(err)
	}
	return &analysis.RepoMetadata{
		Name:        r.GetName(),
		Description: r.GetDescription(),
		Language:    r.GetLanguage(),
		Size:        r.GetSize(),
		Topics:      r.Topics,
		CreatedAt:   r.GetCreatedAt().Time,
		PushedAt:    r.GetPushedAt().Time,
	}, nil
}

func (c *Client) Languages(ctx context.Context, owner, repo string) (map[string]int, error) {
	langs, _, err := c.client.Repositories.ListLanguages(ctx, owner, repo)
	if err != nil {
		return nil, classify(err)
	}
	return langs, nil
}

func (c *Client) RootContents(ctx context.Context, owner, repo string) ([]string, error) {
	_, entries, _, err := c.client.Repositories.GetContents(ctx, owner, repo, "", nil)
	if err != nil {
		return nil, classify(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.GetName())
	}
	return names, nil
}

// WorkflowStatus summarizes the latest run of the named workflow.
func (c *Client) WorkflowStatus(ctx context.Context, owner, repo, workflowName string) (string, error) {
	workflows, _, err := c.client.Actions.ListWorkflows(ctx, owner, repo, nil)
	if err != nil {
		return "", classify(err)
	}

	for _, workflow := range workflows.Workflows {
		if workflow.GetName() == workflowName {
			runs, _, err := c.client.Actions.ListWorkflowRunsByID(ctx, owner, repo, workflow.GetID(), &github.ListWorkflowRunsOptions{
				ListOptions: github.ListOptions{PerPage: 1},
			})
			if err != nil {
				return "", classify(err)
			}

			if len(runs.WorkflowRuns) > 0 {
				run := runs.WorkflowRuns[0]
				status := fmt.Sprintf("Workflow '%s' - Status: %s, Conclusion: %s, Run #%d",
					workflowName, run.GetStatus(), run.GetConclusion(), run.GetRunNumber())
				if run.CreatedAt != nil {
					status += ", Created: " + run.CreatedAt.Format(time.RFC3339)
				}
				if run.GetHTMLURL() != "" {
					status += ", URL: " + run.GetHTMLURL()
				}
				return status, nil
			}

			return fmt.Sprintf("Workflow '%s' found but no runs available", workflowName), nil
		}
	}

	return fmt.Sprintf("Workflow '%s' not found", workflowName), nil
}

// classify turns GitHub HTTP failures into analysis.APIError so callers can
// tell them apart from transport failures.
func classify(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return &analysis.APIError{StatusCode: statusOf(rateErr.Response, http.StatusForbidden), Message: rateErr.Message}
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return &analysis.APIError{StatusCode: statusOf(abuseErr.Response, http.StatusForbidden), Message: abuseErr.Message}
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		return &analysis.APIError{StatusCode: statusOf(respErr.Response, 0), Message: respErr.Message}
	}
	return err
}

func statusOf(resp *http.Response, fallback int) int {
	if resp == nil {
		return fallback
	}
	return resp.StatusCode
}
