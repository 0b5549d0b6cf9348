// Package session defines the deployment configuration aggregate that the
// wizard edits, persists and snapshots.
package session

import (
	"fmt"
	"strings"

	"github.com/bgdnvk/wpdeploy/internal/wordpress"
)

// Target is the kind of deployable unit a repository represents.
type Target string

const (
	TargetTheme  Target = "theme"
	TargetPlugin Target = "plugin"
	TargetCustom Target = "custom"
	TargetRoot   Target = "root"
)

// ParseTarget validates a target classification.
func ParseTarget(v string) (Target, error) {
	switch t := Target(v); t {
	case TargetTheme, TargetPlugin, TargetCustom, TargetRoot:
		return t, nil
	}
	return "", fmt.Errorf("invalid target %q (want theme, plugin, custom or root)", v)
}

type Protocol string

const (
	ProtocolSFTP Protocol = "sftp"
	ProtocolFTP  Protocol = "ftp"
)

func ParseProtocol(v string) (Protocol, error) {
	switch p := Protocol(v); p {
	case ProtocolSFTP, ProtocolFTP:
		return p, nil
	}
	return "", fmt.Errorf("invalid protocol %q (want sftp or ftp)", v)
}

type AuthMethod string

const (
	AuthPassword AuthMethod = "password"
	AuthSSHKey   AuthMethod = "ssh_key"
)

func ParseAuthMethod(v string) (AuthMethod, error) {
	switch a := AuthMethod(v); a {
	case AuthPassword, AuthSSHKey:
		return a, nil
	}
	return "", fmt.Errorf("invalid auth method %q (want password or ssh_key)", v)
}

// DeploymentMode selects between mirroring the source (sync) and only
// adding files (add).
type DeploymentMode string

const (
	ModeSync DeploymentMode = "sync"
	ModeAdd  DeploymentMode = "add"
)

func ParseDeploymentMode(v string) (DeploymentMode, error) {
	switch m := DeploymentMode(v); m {
	case ModeSync, ModeAdd:
		return m, nil
	}
	return "", fmt.Errorf("invalid deployment mode %q (want sync or add)", v)
}

type ConnectionStatus string

const (
	StatusIdle      ConnectionStatus = "idle"
	StatusConnected ConnectionStatus = "connected"
	StatusError     ConnectionStatus = "error"
)

// Wizard steps.
const (
	StepSource   = 1
	StepAnalysis = 2
	StepConnect  = 3
	StepServer   = 4
	StepReview   = 5
)

// ClampStep keeps a step inside the wizard range.
func ClampStep(step int) int {
	if step < StepSource {
		return StepSource
	}
	if step > StepReview {
		return StepReview
	}
	return step
}

// PendingSummary is the summary of a session that was never analyzed.
const PendingSummary = "Waiting for analysis..."

// RepoDetails is the analysis verdict about the source repository.
type RepoDetails struct {
	Language       string `json:"language"`
	Framework      string `json:"framework"`
	Complexity     string `json:"complexity"` // "High" or "Standard"
	Summary        string `json:"summary"`
	IsWordPress    bool   `json:"isWordPress"`
	CreationDate   string `json:"creationDate,omitempty"`
	LastCommitDate string `json:"lastCommitDate,omitempty"`
	FileCount      string `json:"fileCount,omitempty"`
}

// WpConnection records the outcome of the last site status check.
type WpConnection struct {
	Status          ConnectionStatus `json:"status"`
	SiteName        string           `json:"siteName"`
	SiteDescription string           `json:"siteDescription"`
	Version         string           `json:"version"`
	Namespaces      []string         `json:"namespaces"`
}

// Session is the root configuration the wizard manages. JSON names are the
// persisted schema; new fields must tolerate being absent from older blobs.
type Session struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`

	GitURL      string      `json:"gitUrl"`
	RepoDetails RepoDetails `json:"repoDetails"`

	CurrentStep int        `json:"currentStep"`
	Logs        []LogEntry `json:"logs"`

	WpURL        string       `json:"wpUrl"`
	WpConnection WpConnection `json:"wpConnection"`

	// Transfer credentials. Sensitive.
	FtpHost     string `json:"ftpHost"`
	FtpUser     string `json:"ftpUser"`
	FtpPassword string `json:"ftpPassword"`
	FtpPort     string `json:"ftpPort"`

	Target         Target         `json:"target"`
	TargetName     string         `json:"targetName"`
	Branch         string         `json:"branch"`
	Protocol       Protocol       `json:"protocol"`
	AuthType       AuthMethod     `json:"authType"`
	RemoteBase     string         `json:"remoteBase"`
	Notifications  bool           `json:"notifications"`
	EnableRollback bool           `json:"enableRollback"`
	CreateLog      bool           `json:"createLog"`
	DryRun         bool           `json:"dryRun"`
	DeploymentMode DeploymentMode `json:"deploymentMode"`
	WebhookURL     string         `json:"webhookUrl"`
}

// DefaultRepoDetails is the verdict before any analysis ran.
func DefaultRepoDetails() RepoDetails {
	return RepoDetails{
		Language:       "PHP",
		Framework:      "WordPress",
		Complexity:     "Standard",
		Summary:        PendingSummary,
		IsWordPress:    true,
		CreationDate:   "-",
		LastCommitDate: "-",
		FileCount:      "-",
	}
}

// Default returns a fresh session.
func Default() Session {
	return Session{
		CurrentStep: StepSource,
		Logs:        []LogEntry{},
		RepoDetails: DefaultRepoDetails(),
		WpConnection: WpConnection{
			Status:     StatusIdle,
			Namespaces: []string{},
		},
		Target:         TargetTheme,
		TargetName:     "my-project",
		Branch:         "main",
		Protocol:       ProtocolSFTP,
		AuthType:       AuthSSHKey,
		RemoteBase:     wordpress.ThemesBase,
		Notifications:  true,
		EnableRollback: true,
		CreateLog:      true,
		DeploymentMode: ModeSync,
	}
}

// Port returns the configured port or the protocol default.
func (s Session) Port() string {
	if s.FtpPort != "" {
		return s.FtpPort
	}
	return wordpress.DefaultPort(string(s.Protocol))
}

// Clone returns a deep copy that shares no mutable memory with s.
func (s Session) Clone() Session {
	c := s
	if s.Logs != nil {
		c.Logs = make([]LogEntry, len(s.Logs))
		copy(c.Logs, s.Logs)
	}
	if s.WpConnection.Namespaces != nil {
		c.WpConnection.Namespaces = make([]string, len(s.WpConnection.Namespaces))
		copy(c.WpConnection.Namespaces, s.WpConnection.Namespaces)
	}
	return c
}

// SetTarget changes the classification and re-points a default remote base
// at the matching content directory.
func (s *Session) SetTarget(t Target) {
	s.Target = t
	if next, ok := wordpress.AdjustRemoteBase(s.RemoteBase, string(t)); ok {
		s.RemoteBase = next
	}
}

// SetGitURL stores the repository URL and derives the target name from the
// last path segment.
func (s *Session) SetGitURL(url string) {
	s.GitURL = url
	if name, ok := NameFromURL(url); ok {
		s.TargetName = name
	}
}

// NameFromURL takes the last path segment of a repository URL with the
// ".git" suffix removed. ok is false when the URL ends in a slash.
func NameFromURL(url string) (string, bool) {
	parts := strings.Split(url, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "", false
	}
	return strings.Replace(last, ".git", "", 1), true
}
