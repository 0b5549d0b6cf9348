package wordpress

import (
	"strings"
)

const (
	ContentDir = "wp-content"

	ThemesBase  = "/public_html/wp-content/themes/"
	PluginsBase = "/public_html/wp-content/plugins/"

	// RESTNamespace marks a site exposing the v2 REST API.
	RESTNamespace = "wp/v2"

	VersionREST   = "REST API Active"
	VersionLegacy = "Legacy"
)

// DefaultPort returns the well-known port for a transfer protocol.
func DefaultPort(protocol string) string {
	if strings.EqualFold(protocol, "ftp") {
		return "21"
	}
	return "22"
}

// AdjustRemoteBase returns the path a remote base should become when the
// deployment target changes. Only paths still under the default content
// directory are touched, and only when they are not already pointing at the
// directory for the new target.
func AdjustRemoteBase(current, target string) (string, bool) {
	if !strings.Contains(current, ContentDir) {
		return current, false
	}
	switch target {
	case "theme":
		if !strings.Contains(current, "themes") {
			return ThemesBase, true
		}
	case "plugin":
		if !strings.Contains(current, "plugins") {
			return PluginsBase, true
		}
	}
	return current, false
}

// Detect reports whether free text looks like it belongs to the WordPress
// ecosystem.
func Detect(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "wordpress") || strings.Contains(t, "wp-")
}

// VersionMarker summarizes the REST API generation from the advertised
// namespaces.
func VersionMarker(namespaces []string) string {
	for _, ns := range namespaces {
		if ns == RESTNamespace {
			return VersionREST
		}
	}
	return VersionLegacy
}
