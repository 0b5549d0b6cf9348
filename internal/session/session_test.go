package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bgdnvk/wpdeploy/internal/wordpress"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.CurrentStep != StepSource {
		t.Errorf("expected step %d, got %d", StepSource, s.CurrentStep)
	}
	if s.RemoteBase != wordpress.ThemesBase {
		t.Errorf("expected remote base %q, got %q", wordpress.ThemesBase, s.RemoteBase)
	}
	if s.RepoDetails.Summary != PendingSummary {
		t.Errorf("expected pending summary, got %q", s.RepoDetails.Summary)
	}
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := Default()
	s.Logs = append(s.Logs, NewLogEntry(time.Now(), LevelInfo, SourceSystem, "one", ""))
	s.WpConnection.Namespaces = []string{"wp/v2"}

	c := s.Clone()
	s.Logs[0].Message = "changed"
	s.WpConnection.Namespaces[0] = "changed"

	if c.Logs[0].Message != "one" {
		t.Errorf("clone log entry was mutated: %q", c.Logs[0].Message)
	}
	if c.WpConnection.Namespaces[0] != "wp/v2" {
		t.Errorf("clone namespaces were mutated: %q", c.WpConnection.Namespaces[0])
	}
}

func TestSetTargetAdjustsDefaultPath(t *testing.T) {
	s := Default()
	s.SetTarget(TargetPlugin)
	if s.RemoteBase != wordpress.PluginsBase {
		t.Errorf("expected %q, got %q", wordpress.PluginsBase, s.RemoteBase)
	}

	s.RemoteBase = "/home/site/deploy/"
	s.SetTarget(TargetTheme)
	if s.RemoteBase != "/home/site/deploy/" {
		t.Errorf("customized path was overwritten: %q", s.RemoteBase)
	}
}

func TestSetGitURLDerivesName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/acme/starter-theme.git", "starter-theme"},
		{"https://github.com/acme/seo-plugin", "seo-plugin"},
		{"https://github.com/acme/", "my-project"},
	}
	for _, tt := range tests {
		s := Default()
		s.SetGitURL(tt.url)
		if s.TargetName != tt.want {
			t.Errorf("SetGitURL(%q): target name %q, want %q", tt.url, s.TargetName, tt.want)
		}
	}
}

func TestMergeOverDefaults(t *testing.T) {
	raw := json.RawMessage(`{"gitUrl":"https://github.com/a/b","currentStep":9,"branch":"develop"}`)
	s, err := MergeOverDefaults(raw)
	if err != nil {
		t.Fatalf("MergeOverDefaults: %v", err)
	}

	want := Default()
	want.GitURL = "https://github.com/a/b"
	want.CurrentStep = StepReview
	want.Branch = "develop"
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("merged session mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeOverDefaultsRejectsNonObject(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"text"`, `null`, `42`} {
		s, err := MergeOverDefaults(json.RawMessage(raw))
		if !errors.Is(err, ErrNotObject) {
			t.Errorf("%s: expected ErrNotObject, got %v", raw, err)
		}
		if diff := cmp.Diff(Default(), s); diff != "" {
			t.Errorf("%s: expected defaults (-want +got):\n%s", raw, diff)
		}
	}
}

func TestFilterLogs(t *testing.T) {
	now := time.Now()
	logs := []LogEntry{
		NewLogEntry(now, LevelInfo, SourceSystem, "a", ""),
		NewLogEntry(now, LevelError, SourceSystem, "b", ""),
		NewLogEntry(now, LevelSuccess, SourceSystem, "c", ""),
		NewLogEntry(now, LevelError, SourceSystem, "d", ""),
	}

	all := FilterLogs(logs, FilterAll)
	if len(all) != 4 || all[0].Message != "d" || all[3].Message != "a" {
		t.Errorf("unexpected order for all filter: %+v", all)
	}

	errs := FilterLogs(logs, FilterErrors)
	if len(errs) != 2 || errs[0].Message != "d" || errs[1].Message != "b" {
		t.Errorf("unexpected error filter result: %+v", errs)
	}
}

func TestParseEnums(t *testing.T) {
	if _, err := ParseTarget("widget"); err == nil {
		t.Error("expected error for unknown target")
	}
	if got, err := ParseProtocol("ftp"); err != nil || got != ProtocolFTP {
		t.Errorf("ParseProtocol(ftp) = %q, %v", got, err)
	}
	if _, err := ParseAuthMethod("token"); err == nil {
		t.Error("expected error for unknown auth method")
	}
	if got, err := ParseDeploymentMode("add"); err != nil || got != ModeAdd {
		t.Errorf("ParseDeploymentMode(add) = %q, %v", got, err)
	}
}

func TestPortDefaults(t *testing.T) {
	s := Default()
	if s.Port() != "22" {
		t.Errorf("expected sftp default port 22, got %s", s.Port())
	}
	s.Protocol = ProtocolFTP
	if s.Port() != "21" {
		t.Errorf("expected ftp default port 21, got %s", s.Port())
	}
	s.FtpPort = "2222"
	if s.Port() != "2222" {
		t.Errorf("expected explicit port, got %s", s.Port())
	}
}
