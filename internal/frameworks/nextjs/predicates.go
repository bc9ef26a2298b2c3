// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"strings"
)

// maxCaptureGroups is the highest capture-group back-reference the hosting
// rule engine can substitute into a destination.
const maxCaptureGroups = 9

// CleanEscapedChars removes backslash escaping of characters that the
// framework's pattern compiler escapes but that carry no special meaning in
// the hosting platform's pattern syntax. Idempotent: once the escapes are
// gone there is nothing left to strip.
func CleanEscapedChars(path string) string {
	var b strings.Builder
	b.Grow(len(path))

	for i := 0; i < len(path); i++ {
		if path[i] == '\\' && i+1 < len(path) && strings.IndexByte(`(){}:+?*`, path[i+1]) >= 0 {
			continue
		}
		b.WriteByte(path[i])
	}

	return b.String()
}

// IsHeaderSupported reports whether a header rule can be expressed by the
// hosting platform's rule engine. Conditional headers ("has"/"missing"
// request matching) cannot.
func IsHeaderSupported(header RouteHeader) bool {
	return len(header.Has) == 0 && len(header.Missing) == 0
}

// IsRedirectSupported reports whether a redirect rule can be expressed by the
// hosting platform's rule engine.
func IsRedirectSupported(redirect RouteRedirect) bool {
	return len(redirect.Has) == 0 &&
		len(redirect.Missing) == 0 &&
		!redirect.Internal &&
		!isURL(redirect.Destination) &&
		!strings.Contains(redirect.Destination, "?") &&
		isPatternSupported(redirect.Source)
}

// IsRewriteSupported reports whether a rewrite rule can be expressed by the
// hosting platform's rule engine.
func IsRewriteSupported(rewrite RouteRewrite) bool {
	return len(rewrite.Has) == 0 &&
		len(rewrite.Missing) == 0 &&
		!isURL(rewrite.Destination) &&
		!strings.Contains(rewrite.Destination, "?") &&
		isPatternSupported(rewrite.Source)
}

func isURL(destination string) bool {
	return strings.HasPrefix(destination, "http://") || strings.HasPrefix(destination, "https://")
}

// isPatternSupported checks a source pattern for constructs outside the
// hosting platform's pattern syntax: more capture groups than destinations
// can reference back, and wildcards anywhere but the final segment.
func isPatternSupported(source string) bool {
	cleaned := CleanEscapedChars(source)

	groups := 0
	for i := 0; i < len(cleaned); i++ {
		if cleaned[i] == '(' && (i == 0 || cleaned[i-1] != '\\') {
			groups++
		}
	}
	if groups > maxCaptureGroups {
		return false
	}

	// A wildcard is only expressible as a trailing match-rest segment.
	if idx := strings.IndexByte(cleaned, '*'); idx >= 0 && idx != len(cleaned)-1 {
		return false
	}

	return true
}
