package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"

	"github.com/bgdnvk/wpdeploy/internal/envelope"
	"github.com/bgdnvk/wpdeploy/internal/kvstore"
	"github.com/bgdnvk/wpdeploy/internal/persist"
	"github.com/bgdnvk/wpdeploy/internal/registry"
	"github.com/bgdnvk/wpdeploy/internal/session"
	"github.com/bgdnvk/wpdeploy/internal/wizard"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	color.NoColor = true

	kv := kvstore.NewMemory()
	store := persist.NewStore(kv, envelope.New("test"), "")
	saver := persist.NewSaver(store)
	a := &app{
		kv:    kv,
		store: store,
		saver: saver,
		engine: wizard.New(session.Default(), wizard.Options{
			Saver:    saver,
			Store:    store,
			Registry: registry.New(kv, "", 0),
		}),
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestShellKeepsUndoHistory(t *testing.T) {
	a := newTestApp(t)
	in := strings.NewReader(strings.Join([]string{
		"set gitUrl https://github.com/acme/blog-theme.git",
		"set branch production",
		"undo",
		"status",
		"exit",
	}, "\n"))
	var out bytes.Buffer

	if err := runShell(context.Background(), a, in, &out); err != nil {
		t.Fatalf("runShell: %v", err)
	}
	s := a.engine.Session()
	if s.Branch != "main" {
		t.Errorf("expected undo to restore branch main, got %s", s.Branch)
	}
	if s.TargetName != "blog-theme" {
		t.Errorf("expected target name from URL, got %s", s.TargetName)
	}
	if !strings.Contains(out.String(), "Undone. 1 more step(s) available.") {
		t.Errorf("missing undo confirmation in output:\n%s", out.String())
	}
}

func TestShellReportsErrorsAndContinues(t *testing.T) {
	a := newTestApp(t)
	in := strings.NewReader("frobnicate\nset protocol carrier-pigeon\nset protocol ftp\n")
	var out bytes.Buffer

	if err := runShell(context.Background(), a, in, &out); err != nil {
		t.Fatalf("runShell: %v", err)
	}
	if !strings.Contains(out.String(), `unknown command "frobnicate"`) {
		t.Errorf("expected unknown command error:\n%s", out.String())
	}
	if a.engine.Session().Protocol != session.ProtocolFTP {
		t.Errorf("expected the valid set after the errors to apply")
	}
}

func TestShellResetClearsUndo(t *testing.T) {
	a := newTestApp(t)
	in := strings.NewReader("set branch staging\nreset\nundo\n")
	var out bytes.Buffer

	if err := runShell(context.Background(), a, in, &out); err != nil {
		t.Fatalf("runShell: %v", err)
	}
	if got := a.engine.Session().Branch; got != "main" {
		t.Errorf("expected default branch after reset, got %s", got)
	}
	if !strings.Contains(out.String(), "Nothing to undo.") {
		t.Errorf("reset should leave nothing to undo:\n%s", out.String())
	}
}

func TestPublishToStdout(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	var out bytes.Buffer

	for _, line := range []string{"set gitUrl https://github.com/acme/storefront", "set currentStep 5", "publish -"} {
		if err := dispatch(ctx, a, strings.Fields(line), &out); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if !strings.Contains(out.String(), "runs-on: ubuntu-latest") {
		t.Errorf("expected workflow on stdout:\n%s", out.String())
	}
	list, _ := a.engine.Registry(ctx)
	if len(list) != 1 {
		t.Errorf("publish should save to the registry, got %d entries", len(list))
	}
}

func TestPublishUnavailableEarly(t *testing.T) {
	a := newTestApp(t)
	if err := dispatch(context.Background(), a, []string{"publish", "-"}, &bytes.Buffer{}); err == nil {
		t.Error("expected publish to be refused before the review step")
	}
}

func TestLogsFilter(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	if _, saved := a.engine.SaveProfile(ctx); !saved {
		t.Fatal("SaveProfile did not save")
	}

	var out bytes.Buffer
	if err := runLogs(ctx, a, false, &out); err != nil {
		t.Fatalf("runLogs: %v", err)
	}
	if !strings.Contains(out.String(), "[System] Configuration saved to secure registry.") {
		t.Errorf("expected save log:\n%s", out.String())
	}

	out.Reset()
	runLogs(ctx, a, true, &out)
	if strings.TrimSpace(out.String()) != "No log entries." {
		t.Errorf("expected no errors, got:\n%s", out.String())
	}
}

func TestStoreConfigDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Cleanup(viper.Reset)

	viper.Set("store.driver", "file")
	cfg, err := storeConfig()
	if err != nil {
		t.Fatalf("storeConfig: %v", err)
	}
	if cfg.Path != filepath.Join(home, ".wpdeploy", "state") {
		t.Errorf("unexpected file store path %s", cfg.Path)
	}

	viper.Set("store.driver", "postgres")
	viper.Set("store.dsn", "postgres://localhost/wpdeploy")
	cfg, _ = storeConfig()
	if cfg.Path != "" || cfg.DSN != "postgres://localhost/wpdeploy" {
		t.Errorf("unexpected postgres config %+v", cfg)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"status", "set", "next", "back", "analyze", "connect", "save", "publish", "logs", "reset", "registry", "config", "runs", "shell", "mcp"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("command %q is not registered", name)
		}
	}
}
