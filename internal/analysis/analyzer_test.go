package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bgdnvk/wpdeploy/internal/session"
)

type fakeSource struct {
	meta     *RepoMetadata
	repoErr  error
	langs    map[string]int
	langErr  error
	names    []string
	namesErr error
	calls    int
}

func (f *fakeSource) Repository(context.Context, string, string) (*RepoMetadata, error) {
	f.calls++
	return f.meta, f.repoErr
}

func (f *fakeSource) Languages(context.Context, string, string) (map[string]int, error) {
	return f.langs, f.langErr
}

func (f *fakeSource) RootContents(context.Context, string, string) ([]string, error) {
	return f.names, f.namesErr
}

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		meta  RepoMetadata
		files []string
		want  session.Target
	}{
		{"wp-config wins over theme files", RepoMetadata{Name: "site"}, []string{"wp-config.php", "style.css", "functions.php"}, session.TargetRoot},
		{"wp-content dir", RepoMetadata{Name: "site"}, []string{"wp-content", "README.md"}, session.TargetRoot},
		{"theme structure", RepoMetadata{Name: "x"}, []string{"Style.css", "functions.php"}, session.TargetTheme},
		{"theme keyword with stylesheet", RepoMetadata{Name: "x", Topics: []string{"theme"}}, []string{"style.css", "README.md"}, session.TargetTheme},
		{"plugin keyword", RepoMetadata{Name: "x", Description: "A handy plugin"}, []string{"README.md"}, session.TargetPlugin},
		{"plugin topic", RepoMetadata{Name: "x", Topics: []string{"wordpress-plugin"}}, nil, session.TargetPlugin},
		{"php without stylesheet", RepoMetadata{Name: "x"}, []string{"main.php"}, session.TargetPlugin},
		{"wordpress seo combo", RepoMetadata{Name: "yoast", Description: "WordPress SEO"}, []string{"style.css"}, session.TargetPlugin},
		{"nothing matches", RepoMetadata{Name: "docs"}, []string{"README.md"}, session.TargetCustom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := Classify(&tt.meta, tt.files)
			if got != tt.want {
				t.Errorf("Classify = %s (%s), want %s", got, reason, tt.want)
			}
			if reason == "" {
				t.Error("expected a reason")
			}
		})
	}
}

func TestAnalyzeThemeFromMetadata(t *testing.T) {
	src := &fakeSource{
		meta: &RepoMetadata{
			Name:        "starter",
			Description: "Clean starter",
			Language:    "CSS",
			Size:        1024,
			CreatedAt:   time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
			PushedAt:    time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC),
		},
		langs: map[string]int{"PHP": 500, "CSS": 300},
		names: []string{"style.css", "functions.php", "index.php"},
	}
	res := New(src, false).Analyze(context.Background(), "https://github.com/acme/starter")

	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Target != session.TargetTheme {
		t.Errorf("expected theme, got %s", res.Target)
	}
	d := res.Details
	if d.Language != "PHP" || d.Framework != "WordPress" || !d.IsWordPress {
		t.Errorf("unexpected language verdict: %+v", d)
	}
	if d.CreationDate != "2020-01-02" || d.LastCommitDate != "2024-06-07" {
		t.Errorf("unexpected dates: %s %s", d.CreationDate, d.LastCommitDate)
	}
	if d.FileCount != "1 MB (approx)" {
		t.Errorf("unexpected size: %s", d.FileCount)
	}
	if d.Summary != "Detected style.css and functions.php (Theme structure).\nClean starter" {
		t.Errorf("unexpected summary: %q", d.Summary)
	}
	last := res.Events[len(res.Events)-1]
	if last.Level != session.LevelSuccess || last.Details == "" {
		t.Errorf("expected success event with details, got %+v", last)
	}
}

func TestAnalyzeNonWordPressRepo(t *testing.T) {
	src := &fakeSource{
		meta:  &RepoMetadata{Name: "dashboard", Description: "admin UI"},
		langs: map[string]int{"TypeScript": 9000, "CSS": 10},
		names: []string{"package.json"},
	}
	res := New(src, false).Analyze(context.Background(), "https://github.com/acme/dashboard")
	if res.Details.IsWordPress {
		t.Error("expected non-WordPress verdict")
	}
	if res.Details.Framework != "TypeScript" {
		t.Errorf("expected framework to fall back to language, got %s", res.Details.Framework)
	}
	if res.Target != session.TargetCustom {
		t.Errorf("expected custom, got %s", res.Target)
	}
}

func TestAnalyzeRateLimitFallsBack(t *testing.T) {
	src := &fakeSource{repoErr: &APIError{StatusCode: 429}}
	res := New(src, false).Analyze(context.Background(), "https://github.com/acme/fancy-theme")

	if res.Err != nil {
		t.Fatalf("rate limit should not fail: %v", res.Err)
	}
	if src.calls != 1 {
		t.Errorf("expected exactly one metadata request, got %d", src.calls)
	}
	if res.Tier != TierHeuristic || res.Target != session.TargetTheme {
		t.Errorf("expected heuristic theme verdict, got %s/%s", res.Tier, res.Target)
	}
	var sawWarning bool
	for _, e := range res.Events {
		if e.Level == session.LevelWarning {
			sawWarning = true
		}
	}
	if !sawWarning {
		t.Error("expected a warning event")
	}
}

func TestAnalyzeTransportFailure(t *testing.T) {
	src := &fakeSource{repoErr: errors.New("dial tcp: connection refused")}
	res := New(src, false).Analyze(context.Background(), "https://github.com/acme/site")

	if res.Err == nil {
		t.Fatal("expected failure")
	}
	last := res.Events[len(res.Events)-1]
	if last.Level != session.LevelError {
		t.Errorf("expected error event, got %+v", last)
	}
}

func TestAnalyzeSecondaryEndpointsTolerateStatus(t *testing.T) {
	src := &fakeSource{
		meta:     &RepoMetadata{Name: "tool", Language: "Go"},
		langErr:  &APIError{StatusCode: 500},
		namesErr: &APIError{StatusCode: 404},
	}
	res := New(src, false).Analyze(context.Background(), "https://github.com/acme/tool")
	if res.Err != nil {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Details.Language != "Go" {
		t.Errorf("expected declared language, got %s", res.Details.Language)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	src := &fakeSource{
		meta:  &RepoMetadata{Name: "seo", Description: "WordPress SEO toolkit"},
		langs: map[string]int{"PHP": 1},
		names: []string{"seo.php"},
	}
	a := New(src, false)
	first := a.Analyze(context.Background(), "https://github.com/acme/seo")
	second := a.Analyze(context.Background(), "https://github.com/acme/seo")
	if first.Details != second.Details || first.Target != second.Target {
		t.Errorf("repeated analysis differs: %+v vs %+v", first, second)
	}
}

func TestHeuristic(t *testing.T) {
	tests := []struct {
		url    string
		target session.Target
		isWP   bool
	}{
		{"https://gitlab.com/acme/blog-theme", session.TargetTheme, true},
		{"https://gitlab.com/acme/react-theme", session.TargetTheme, false},
		{"https://bitbucket.org/acme/seo-tools", session.TargetPlugin, true},
		{"https://example.com/acme/site", session.TargetCustom, true},
	}
	for _, tt := range tests {
		d, target := Heuristic(tt.url)
		if target != tt.target {
			t.Errorf("%s: target %s, want %s", tt.url, target, tt.target)
		}
		if d.IsWordPress != tt.isWP {
			t.Errorf("%s: isWordPress %v, want %v", tt.url, d.IsWordPress, tt.isWP)
		}
	}
}

func TestNoSourceUsesHeuristics(t *testing.T) {
	res := New(nil, false).Analyze(context.Background(), "https://github.com/acme/some-plugin")
	if res.Tier != TierHeuristic || res.Target != session.TargetPlugin {
		t.Errorf("unexpected verdict %s/%s", res.Tier, res.Target)
	}
}

func TestParseGitHubURL(t *testing.T) {
	tests := []struct {
		in          string
		owner, repo string
		ok          bool
	}{
		{"https://github.com/acme/site.git", "acme", "site", true},
		{"https://github.com/acme/site/tree/main", "acme", "site", true},
		{"git@github.com:acme/site.git", "acme", "site", true},
		{"https://github.com/acme", "", "", false},
		{"https://gitlab.com/acme/site", "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := ParseGitHubURL(tt.in)
		if owner != tt.owner || repo != tt.repo || ok != tt.ok {
			t.Errorf("ParseGitHubURL(%q) = %q, %q, %v", tt.in, owner, repo, ok)
		}
	}
}

func TestPrimaryLanguage(t *testing.T) {
	if got := PrimaryLanguage(nil, ""); got != "Unknown" {
		t.Errorf("expected Unknown, got %s", got)
	}
	if got := PrimaryLanguage(map[string]int{"CSS": 5, "PHP": 5}, "Go"); got != "CSS" {
		t.Errorf("expected alphabetical tie break CSS, got %s", got)
	}
}
