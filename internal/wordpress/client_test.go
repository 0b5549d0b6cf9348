package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestCheckSite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":        "Demo Site",
			"description": "Just another site",
			"namespaces":  []string{"oembed/1.0", "wp/v2"},
		})
	}))
	defer server.Close()

	client := NewClient(0, false)
	info, err := client.CheckSite(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("CheckSite failed: %v", err)
	}
	if info.Name != "Demo Site" {
		t.Errorf("expected name 'Demo Site', got '%s'", info.Name)
	}
	if VersionMarker(info.Namespaces) != VersionREST {
		t.Errorf("expected version %q, got %q", VersionREST, VersionMarker(info.Namespaces))
	}
}

func TestCheckSite_NonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(strings.Repeat("x", 300)))
	}))
	defer server.Close()

	client := NewClient(0, false)
	_, err := client.CheckSite(context.Background(), server.URL+"/")
	if err == nil {
		t.Fatal("expected error for forbidden response")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", httpErr.StatusCode)
	}
	if len(httpErr.Body) != 100 {
		t.Errorf("expected body snippet of 100 bytes, got %d", len(httpErr.Body))
	}
}

func TestIndexURL(t *testing.T) {
	if got := IndexURL("https://example.com"); got != "https://example.com/wp-json/" {
		t.Errorf("unexpected index url %q", got)
	}
	if got := IndexURL("https://example.com/"); got != "https://example.com/wp-json/" {
		t.Errorf("unexpected index url %q", got)
	}
}

func TestAdjustRemoteBase(t *testing.T) {
	tests := []struct {
		name    string
		current string
		target  string
		want    string
		changed bool
	}{
		{"theme to plugin", ThemesBase, "plugin", PluginsBase, true},
		{"plugin to theme", PluginsBase, "theme", ThemesBase, true},
		{"already theme", ThemesBase, "theme", ThemesBase, false},
		{"custom path untouched", "/srv/www/site/", "plugin", "/srv/www/site/", false},
		{"root leaves path", ThemesBase, "root", ThemesBase, false},
		{"custom target leaves path", ThemesBase, "custom", ThemesBase, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := AdjustRemoteBase(tt.current, tt.target)
			if got != tt.want || changed != tt.changed {
				t.Errorf("AdjustRemoteBase(%q, %q) = %q, %v; want %q, %v", tt.current, tt.target, got, changed, tt.want, tt.changed)
			}
		})
	}
}

func TestVersionMarkerLegacy(t *testing.T) {
	if got := VersionMarker([]string{"oembed/1.0"}); got != VersionLegacy {
		t.Errorf("expected %q, got %q", VersionLegacy, got)
	}
	if got := VersionMarker(nil); got != VersionLegacy {
		t.Errorf("expected %q, got %q", VersionLegacy, got)
	}
}

// Stdout carries the MCP stream, so debug output must go through the logger.
func TestDebugOutputStaysOffStdout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"name": "Demo Site"})
	}))
	defer server.Close()

	var logged bytes.Buffer
	log.SetOutput(&logged)
	defer log.SetOutput(os.Stderr)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	stdout := os.Stdout
	os.Stdout = w
	_, checkErr := NewClient(0, true).CheckSite(context.Background(), server.URL)
	os.Stdout = stdout
	w.Close()
	written, _ := io.ReadAll(r)

	if checkErr != nil {
		t.Fatalf("CheckSite failed: %v", checkErr)
	}
	if len(written) != 0 {
		t.Errorf("expected nothing on stdout, got %q", written)
	}
	if !strings.Contains(logged.String(), "[wordpress] GET "+server.URL+"/wp-json/") {
		t.Errorf("expected debug line in the log, got %q", logged.String())
	}
}
