package utils

import (
	"regexp"
	"strings"
)

var (
	textEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
		"/", "&#x2F;",
	)

	pathEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)

	pathShape = regexp.MustCompile(`^[/\\]?[\w-]+[/\\][\w-]+`)
)

// IsPathLike reports whether s looks like an uploaded file path
func IsPathLike(s string) bool {
	return strings.Contains(s, "uploads/") || pathShape.MatchString(s)
}

// SanitizeHTML escapes user text before it leaves the service.
// Path-shaped strings keep their slashes.
func SanitizeHTML(s string) string {
	if s == "" {
		return ""
	}
	if IsPathLike(s) {
		return pathEscaper.Replace(s)
	}
	return textEscaper.Replace(s)
}

// SanitizeAll escapes every string of a slice
func SanitizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = SanitizeHTML(v)
	}
	return out
}
