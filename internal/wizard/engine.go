// Package wizard drives the five-step deployment wizard. Every change to the
// session goes through one commit path that records undo history and
// schedules an encrypted save.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bgdnvk/wpdeploy/internal/analysis"
	"github.com/bgdnvk/wpdeploy/internal/history"
	"github.com/bgdnvk/wpdeploy/internal/pipeline"
	"github.com/bgdnvk/wpdeploy/internal/registry"
	"github.com/bgdnvk/wpdeploy/internal/session"
	"github.com/bgdnvk/wpdeploy/internal/wordpress"
)

// ErrPublishUnavailable is returned by Publish before the review step or
// without a repository URL.
var ErrPublishUnavailable = errors.New("publish requires the review step and a repository URL")

// Analyzer classifies a repository.
type Analyzer interface {
	Analyze(ctx context.Context, repoURL string) analysis.Result
}

// SiteChecker reads the REST index of a WordPress site.
type SiteChecker interface {
	CheckSite(ctx context.Context, siteURL string) (*wordpress.SiteInfo, error)
}

// Scheduler persists sessions in the background.
type Scheduler interface {
	Schedule(s session.Session)
	Flush(ctx context.Context) error
}

// SessionStore writes the current session immediately.
type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
}

// Options wires the engine's collaborators. History defaults to a stack of
// history.DefaultLimit and Now to time.Now; the rest are required for the
// operations that use them.
type Options struct {
	History  *history.Stack
	Saver    Scheduler
	Store    SessionStore
	Registry *registry.Manager
	Analyzer Analyzer
	Site     SiteChecker
	Now      func() time.Time
	Debug    bool
}

// Engine owns the live session.
type Engine struct {
	mu      sync.Mutex
	current session.Session
	connErr string
	// autoURL is the repository URL the analysis step already fired for.
	autoURL string

	history  *history.Stack
	saver    Scheduler
	store    SessionStore
	registry *registry.Manager
	analyzer Analyzer
	site     SiteChecker
	now      func() time.Time
	debug    bool
}

// New starts an engine on a loaded session.
func New(initial session.Session, opts Options) *Engine {
	if opts.History == nil {
		opts.History = history.New(history.DefaultLimit)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	initial.CurrentStep = session.ClampStep(initial.CurrentStep)
	if initial.Logs == nil {
		initial.Logs = []session.LogEntry{}
	}
	return &Engine{
		current:  initial.Clone(),
		history:  opts.History,
		saver:    opts.Saver,
		store:    opts.Store,
		registry: opts.Registry,
		analyzer: opts.Analyzer,
		site:     opts.Site,
		now:      opts.Now,
		debug:    opts.Debug,
	}
}

// Session returns a copy of the live session.
func (e *Engine) Session() session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current.Clone()
}

// HistoryLen is the number of states Undo can step back through.
func (e *Engine) HistoryLen() int {
	return e.history.Len()
}

// CanUndo reports whether Undo has a prior state to restore.
func (e *Engine) CanUndo() bool {
	return e.history.Len() > 0
}

// ConnectionError is the message from the last failed connection test, or
// "" when the last test succeeded or none ran.
func (e *Engine) ConnectionError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connErr
}

// Update applies fn to a copy of the live session and commits the result.
// It is the only way the live session changes apart from Undo and Reset.
func (e *Engine) Update(fn func(*session.Session)) session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitLocked(fn)
}

func (e *Engine) commitLocked(fn func(*session.Session)) session.Session {
	prior := e.current
	next := prior.Clone()
	fn(&next)
	next.CurrentStep = session.ClampStep(next.CurrentStep)
	if next.Logs == nil {
		next.Logs = []session.LogEntry{}
	}

	e.history.Record(prior)
	e.current = next
	if e.saver != nil {
		e.saver.Schedule(next)
	}
	return next.Clone()
}

func (e *Engine) logLocked(level session.Level, source, message, details string) session.Session {
	entry := session.NewLogEntry(e.now(), level, source, message, details)
	return e.commitLocked(func(s *session.Session) {
		s.Logs = append(s.Logs, entry)
	})
}

// Next moves forward one step. Entering the analysis step with a fresh
// repository URL runs the analysis once before returning.
func (e *Engine) Next(ctx context.Context) session.Session {
	e.mu.Lock()
	s := e.commitLocked(func(s *session.Session) { s.CurrentStep++ })
	auto := e.wantsAutoAnalysisLocked()
	if auto {
		e.autoURL = s.GitURL
	}
	e.mu.Unlock()

	if auto {
		return e.Analyze(ctx)
	}
	return s
}

// Back moves back one step.
func (e *Engine) Back() session.Session {
	return e.Update(func(s *session.Session) { s.CurrentStep-- })
}

func (e *Engine) wantsAutoAnalysisLocked() bool {
	s := e.current
	return s.CurrentStep == session.StepAnalysis &&
		s.GitURL != "" &&
		s.RepoDetails.Summary == session.PendingSummary &&
		e.autoURL != s.GitURL
}

// Analyze classifies the repository and applies the verdict. Failures are
// recorded in the session log and leave the prior verdict in place.
func (e *Engine) Analyze(ctx context.Context) session.Session {
	e.mu.Lock()
	url := e.current.GitURL
	if url == "" || e.analyzer == nil {
		s := e.current.Clone()
		e.mu.Unlock()
		return s
	}
	e.logLocked(session.LevelInfo, session.SourceAnalysis, "Starting static analysis for: "+url, "")
	e.mu.Unlock()

	res := e.analyzer.Analyze(ctx, url)
	if e.debug {
		log.Printf("[wizard] analysis of %s finished via %s (err=%v)", url, res.Tier, res.Err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	entries := make([]session.LogEntry, 0, len(res.Events))
	for _, ev := range res.Events {
		entries = append(entries, session.NewLogEntry(now, ev.Level, session.SourceAnalysis, ev.Message, ev.Details))
	}
	// Results land on whatever the session is now, even if another analysis
	// or an edit happened in between.
	return e.commitLocked(func(s *session.Session) {
		s.Logs = append(s.Logs, entries...)
		if res.Err != nil {
			return
		}
		s.RepoDetails = res.Details
		if res.Target != "" {
			s.SetTarget(res.Target)
		}
	})
}

// TestConnection checks the configured WordPress site.
func (e *Engine) TestConnection(ctx context.Context) session.Session {
	e.mu.Lock()
	siteURL := e.current.WpURL
	if siteURL == "" || e.site == nil {
		s := e.current.Clone()
		e.mu.Unlock()
		return s
	}
	e.connErr = ""
	e.logLocked(session.LevelInfo, session.SourceConnection, "Testing connection to: "+siteURL, "")
	e.mu.Unlock()

	info, err := e.site.CheckSite(ctx, siteURL)

	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	if err != nil {
		msg := "Connection Failed. " + err.Error()
		e.connErr = msg
		entry := session.NewLogEntry(now, session.LevelError, session.SourceConnection, msg, err.Error())
		return e.commitLocked(func(s *session.Session) {
			s.Logs = append(s.Logs, entry)
			s.WpConnection.Status = session.StatusError
		})
	}

	conn := session.WpConnection{
		Status:          session.StatusConnected,
		SiteName:        info.Name,
		SiteDescription: info.Description,
		Version:         wordpress.VersionMarker(info.Namespaces),
		Namespaces:      append([]string{}, info.Namespaces...),
	}
	if conn.SiteName == "" {
		conn.SiteName = "Unknown Site"
	}
	label := info.Name
	if label == "" {
		label = "WordPress Site"
	}
	entry := session.NewLogEntry(now, session.LevelSuccess, session.SourceConnection,
		"Connected to "+label, "Namespaces: "+strings.Join(info.Namespaces, ", "))
	return e.commitLocked(func(s *session.Session) {
		s.WpConnection = conn
		s.Logs = append(s.Logs, entry)
	})
}

// Undo restores the previous state without recording a new one. With an
// empty history it does nothing.
func (e *Engine) Undo() (session.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prior, ok := e.history.Pop()
	if !ok {
		return e.current.Clone(), false
	}
	e.current = prior
	if e.saver != nil {
		e.saver.Schedule(prior)
	}
	return prior.Clone(), true
}

// Reset starts the wizard over from a default session. It clears the undo
// history, so it cannot be undone.
func (e *Engine) Reset() session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Clear()
	e.current = session.Default()
	e.connErr = ""
	e.autoURL = ""
	if e.saver != nil {
		e.saver.Schedule(e.current)
	}
	return e.current.Clone()
}

// SaveProfile stores the live session in the registry and writes it to the
// durable store right away. Write failures are logged to the session and
// reported through saved; they never stop the wizard.
func (e *Engine) SaveProfile(ctx context.Context) (s session.Session, saved bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.persistLocked(ctx) {
		return e.current.Clone(), false
	}
	return e.logLocked(session.LevelSuccess, session.SourceSystem, "Configuration saved to secure registry.", ""), true
}

// Publish finishes the wizard: it saves the session like SaveProfile and
// renders the deployment workflow. A failed save is logged and the workflow
// is rendered anyway.
func (e *Engine) Publish(ctx context.Context) (session.Session, []byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current.CurrentStep != session.StepReview || e.current.GitURL == "" {
		return e.current.Clone(), nil, ErrPublishUnavailable
	}

	e.logLocked(session.LevelInfo, session.SourceSystem, "Starting pipeline generation process...", "")
	e.persistLocked(ctx)

	artifact, err := pipeline.Render(e.current)
	if err != nil {
		s := e.logLocked(session.LevelError, session.SourceSystem, "Pipeline generation failed.", err.Error())
		return s, nil, fmt.Errorf("render pipeline: %w", err)
	}
	s := e.logLocked(session.LevelSuccess, session.SourceSystem, "Pipeline generated successfully. Ready for download.", "")
	return s, artifact, nil
}

// persistLocked writes the registry entry and the session. Each failure
// becomes an error entry in the session log.
func (e *Engine) persistLocked(ctx context.Context) bool {
	ok := true
	snapshot := e.current
	if e.registry != nil {
		if _, err := e.registry.Save(ctx, snapshot); err != nil {
			ok = false
			e.persistFailedLocked("Could not save configuration to the registry.", err)
		}
	}
	if e.store != nil {
		if err := e.store.Save(ctx, snapshot); err != nil {
			ok = false
			e.persistFailedLocked("Could not write the saved session.", err)
		}
	}
	return ok
}

func (e *Engine) persistFailedLocked(message string, err error) {
	if e.debug {
		log.Printf("[wizard] %s %v", message, err)
	}
	e.logLocked(session.LevelError, session.SourceSystem, message, err.Error())
}

// Registry lists saved profiles, most recent first.
func (e *Engine) Registry(ctx context.Context) ([]session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registry == nil {
		return []session.Session{}, nil
	}
	return e.registry.List(ctx)
}

// LoadEntry replaces the live session with the saved profile of that
// target name. The load can be undone.
func (e *Engine) LoadEntry(ctx context.Context, targetName string) (session.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registry == nil {
		return e.current.Clone(), registry.ErrNotFound
	}
	entry, err := e.registry.Find(ctx, targetName)
	if err != nil {
		return e.current.Clone(), err
	}
	return e.commitLocked(func(s *session.Session) { *s = entry.Clone() }), nil
}

// ClearRegistry removes every saved profile.
func (e *Engine) ClearRegistry(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.registry == nil {
		return nil
	}
	return e.registry.Clear(ctx)
}

// Flush waits for scheduled saves to reach the store.
func (e *Engine) Flush(ctx context.Context) error {
	if e.saver == nil {
		return nil
	}
	return e.saver.Flush(ctx)
}
