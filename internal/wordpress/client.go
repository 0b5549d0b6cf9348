package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// SiteInfo is the subset of the wp-json index document the wizard uses.
type SiteInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Namespaces  []string `json:"namespaces"`
}

// HTTPError is returned when the site answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP Error: %d %s \nResponse: %s...", e.StatusCode, e.Status, e.Body)
}

// Client talks to the public REST index of a WordPress site.
type Client struct {
	httpClient *http.Client
	debug      bool
}

// NewClient creates a site client. A zero timeout means requests only end
// when the context is cancelled.
func NewClient(timeout time.Duration, debug bool) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		debug:      debug,
	}
}

// IndexURL returns the wp-json index location for a site base URL.
func IndexURL(siteURL string) string {
	base := siteURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + "wp-json/"
}

// CheckSite fetches the REST index of the site.
func (c *Client) CheckSite(ctx context.Context, siteURL string) (*SiteInfo, error) {
	apiURL := IndexURL(siteURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if c.debug {
		log.Printf("[wordpress] GET %s", apiURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 100 {
			snippet = snippet[:100]
		}
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       snippet,
		}
	}

	var info SiteInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse site index: %w", err)
	}
	return &info, nil
}
