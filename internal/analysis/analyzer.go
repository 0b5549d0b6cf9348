// Package analysis infers what kind of WordPress deployable a repository
// is. It asks the hosted-repository API first and falls back to looking at
// the URL itself when the API is unavailable, rate limited or not
// applicable.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/bgdnvk/wpdeploy/internal/session"
	"github.com/bgdnvk/wpdeploy/internal/wordpress"
)

// Tier names the strategy that produced a verdict.
type Tier string

const (
	TierMetadata  Tier = "metadata-api"
	TierHeuristic Tier = "url-heuristic"
)

// HighComplexitySize is the repository size in kilobytes above which a
// repository is rated "High" complexity.
const HighComplexitySize = 50000

// Event is something worth telling the user about an analysis run.
type Event struct {
	Level   session.Level
	Message string
	Details string
}

// Result is the verdict of one analysis run. When Err is set the run failed
// outright and Details and Target must not be applied.
type Result struct {
	Details session.RepoDetails
	Target  session.Target
	Tier    Tier
	Events  []Event
	Err     error
}

func (r *Result) event(level session.Level, details, format string, args ...any) {
	r.Events = append(r.Events, Event{Level: level, Message: fmt.Sprintf(format, args...), Details: details})
}

// Analyzer runs the tiered analysis.
type Analyzer struct {
	source MetadataSource
	debug  bool
}

// New creates an analyzer. A nil source restricts it to URL heuristics.
func New(source MetadataSource, debug bool) *Analyzer {
	return &Analyzer{source: source, debug: debug}
}

// Analyze never panics on network failure; failures are reported through
// Result.Err and Result.Events.
func (a *Analyzer) Analyze(ctx context.Context, repoURL string) Result {
	res := Result{Details: fallbackDetails(), Target: session.TargetCustom, Tier: TierHeuristic}

	detected := false
	if owner, repo, ok := ParseGitHubURL(repoURL); ok && a.source != nil {
		res.event(session.LevelInfo, "", "Querying GitHub API for %s/%s...", owner, repo)

		details, target, err := a.fromMetadata(ctx, owner, repo)
		var apiErr *APIError
		switch {
		case err == nil:
			detected = true
			res.Details, res.Target, res.Tier = details, target, TierMetadata
			res.event(session.LevelSuccess, resultJSON(details, target),
				"GitHub API Analysis Complete: Identified as %s", target)
		case errors.As(err, &apiErr) && apiErr.RateLimited():
			res.event(session.LevelWarning, "", "GitHub API Rate Limit hit. Switching to URL-based heuristics.")
		case errors.As(err, &apiErr):
			res.event(session.LevelWarning, "", "GitHub API Error: %d. Repository might be private.", apiErr.StatusCode)
		default:
			if a.debug {
				log.Printf("[analysis] metadata lookup for %s/%s failed: %v", owner, repo, err)
			}
			res.Err = err
			res.event(session.LevelError, "", "Analysis failed: %s", err.Error())
			return res
		}
	}

	if !detected {
		res.event(session.LevelInfo, "", "Performing heuristic analysis on URL...")
		res.Details, res.Target = Heuristic(repoURL)
		res.Tier = TierHeuristic
		res.event(session.LevelSuccess, "", "Heuristic Analysis Complete")
	}
	return res
}

func (a *Analyzer) fromMetadata(ctx context.Context, owner, repo string) (session.RepoDetails, session.Target, error) {
	meta, err := a.source.Repository(ctx, owner, repo)
	if err != nil {
		return session.RepoDetails{}, "", err
	}

	languages, err := a.source.Languages(ctx, owner, repo)
	if err != nil {
		if !isAPIError(err) {
			return session.RepoDetails{}, "", err
		}
		languages = map[string]int{}
	}

	names, err := a.source.RootContents(ctx, owner, repo)
	if err != nil {
		if !isAPIError(err) {
			return session.RepoDetails{}, "", err
		}
		names = nil
	}

	primary := PrimaryLanguage(languages, meta.Language)
	target, reason := Classify(meta, names)
	corpus := textCorpus(meta)
	isWP := wordpress.Detect(corpus) || primary == "PHP"

	framework := primary
	if isWP {
		framework = "WordPress"
	}
	complexity := "Standard"
	if meta.Size > HighComplexitySize {
		complexity = "High"
	}

	return session.RepoDetails{
		Language:       primary,
		Framework:      framework,
		Complexity:     complexity,
		Summary:        reason + "\n" + meta.Description,
		IsWordPress:    isWP,
		CreationDate:   dateOrDash(meta.CreatedAt),
		LastCommitDate: dateOrDash(meta.PushedAt),
		FileCount:      fmt.Sprintf("%d MB (approx)", int(math.Round(float64(meta.Size)/1024))),
	}, target, nil
}

// Classify applies the structural decision matrix to the root listing and
// the repository's descriptive text. The first matching rule wins.
func Classify(meta *RepoMetadata, rootNames []string) (session.Target, string) {
	files := make(map[string]bool, len(rootNames))
	hasPHP := false
	for _, n := range rootNames {
		n = strings.ToLower(n)
		files[n] = true
		if strings.HasSuffix(n, ".php") {
			hasPHP = true
		}
	}
	corpus := textCorpus(meta)
	hasStyle := files["style.css"]

	switch {
	case files["wp-config.php"] || files[wordpress.ContentDir]:
		return session.TargetRoot, "Detected wp-config.php or wp-content directory."
	case hasStyle && files["functions.php"]:
		return session.TargetTheme, "Detected style.css and functions.php (Theme structure)."
	case strings.Contains(corpus, "theme") && hasStyle:
		return session.TargetTheme, "Detected 'theme' topic and style.css."
	case strings.Contains(corpus, "plugin") || hasTopic(meta, "wordpress-plugin"):
		return session.TargetPlugin, "Explicitly identified as plugin via topics/description."
	case hasPHP && !hasStyle:
		return session.TargetPlugin, "Detected PHP files without theme structure."
	case strings.Contains(corpus, "wordpress") && strings.Contains(corpus, "seo"):
		return session.TargetPlugin, "Inferred from file structure."
	}
	return session.TargetCustom, "Inferred from file structure."
}

// Heuristic guesses from the URL alone.
func Heuristic(repoURL string) (session.RepoDetails, session.Target) {
	d := fallbackDetails()
	u := strings.ToLower(repoURL)

	if strings.Contains(u, "react") || strings.Contains(u, "node") || strings.Contains(u, "js") {
		d.Language = "JavaScript/TypeScript"
		d.IsWordPress = false
		d.Framework = "Node/React"
	}

	switch {
	case strings.Contains(u, "theme"):
		d.Summary = "Detected 'theme' keyword in repository URL."
		return d, session.TargetTheme
	case strings.Contains(u, "plugin") || strings.Contains(u, "seo"):
		d.Summary = "Detected 'plugin' or known plugin keyword in repository URL."
		return d, session.TargetPlugin
	}
	d.Summary = "Could not detect specific type from URL. Defaulting to Custom."
	return d, session.TargetCustom
}

// PrimaryLanguage picks the language with the most bytes, falling back to
// the repository's declared language.
func PrimaryLanguage(languages map[string]int, declared string) string {
	if len(languages) == 0 {
		if declared == "" {
			return "Unknown"
		}
		return declared
	}
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if languages[names[i]] != languages[names[j]] {
			return languages[names[i]] > languages[names[j]]
		}
		return names[i] < names[j]
	})
	return names[0]
}

func fallbackDetails() session.RepoDetails {
	return session.RepoDetails{
		Language:       "PHP",
		Framework:      "WordPress",
		Complexity:     "Standard",
		Summary:        "Analysis based on URL structure.",
		IsWordPress:    true,
		CreationDate:   "-",
		LastCommitDate: "-",
		FileCount:      "-",
	}
}

func textCorpus(meta *RepoMetadata) string {
	return strings.ToLower(meta.Name + " " + meta.Description + " " + strings.Join(meta.Topics, " "))
}

func hasTopic(meta *RepoMetadata, topic string) bool {
	for _, t := range meta.Topics {
		if t == topic {
			return true
		}
	}
	return false
}

func isAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func resultJSON(d session.RepoDetails, target session.Target) string {
	out := struct {
		session.RepoDetails
		Type session.Target `json:"type"`
	}{d, target}
	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return ""
	}
	return string(buf)
}
