// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanEscapedChars(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{`/about`, `/about`},
		{`/foo\(bar\)`, `/foo(bar)`},
		{`/a\{b\}\:c\+d\?e\*`, `/a{b}:c+d?e*`},
		{`/regular\\backslash`, `/regular\\backslash`},
		{``, ``},
	}

	for _, c := range cases {
		require.Equal(t, c.expected, CleanEscapedChars(c.input))
	}
}

func TestCleanEscapedCharsIsIdempotent(t *testing.T) {
	inputs := []string{`/foo\(bar\)`, `/a\{b\}`, `/plain`, `/mix\:ed\*`}

	for _, input := range inputs {
		once := CleanEscapedChars(input)
		require.Equal(t, once, CleanEscapedChars(once))
	}
}

func TestIsHeaderSupported(t *testing.T) {
	require.True(t, IsHeaderSupported(RouteHeader{Source: "/about"}))
	require.False(t, IsHeaderSupported(RouteHeader{
		Source: "/about",
		Has:    []RouteHas{{Type: "header", Key: "x-custom"}},
	}))
	require.False(t, IsHeaderSupported(RouteHeader{
		Source:  "/about",
		Missing: []RouteHas{{Type: "cookie", Key: "session"}},
	}))
}

func TestIsRedirectSupported(t *testing.T) {
	cases := []struct {
		name     string
		redirect RouteRedirect
		expected bool
	}{
		{
			name:     "plain",
			redirect: RouteRedirect{Source: "/old", Destination: "/new"},
			expected: true,
		},
		{
			name:     "conditional",
			redirect: RouteRedirect{Source: "/old", Destination: "/new", Has: []RouteHas{{Type: "host"}}},
			expected: false,
		},
		{
			name:     "internal",
			redirect: RouteRedirect{Source: "/old", Destination: "/new", Internal: true},
			expected: false,
		},
		{
			name:     "external destination",
			redirect: RouteRedirect{Source: "/old", Destination: "https://example.com/new"},
			expected: false,
		},
		{
			name:     "query string destination",
			redirect: RouteRedirect{Source: "/old", Destination: "/new?ref=old"},
			expected: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, IsRedirectSupported(c.redirect))
		})
	}
}

func TestIsRewriteSupported(t *testing.T) {
	require.True(t, IsRewriteSupported(RouteRewrite{Source: "/docs/:slug", Destination: "/articles/:slug"}))
	require.False(t, IsRewriteSupported(RouteRewrite{Source: "/docs", Destination: "https://docs.example.com"}))
	require.False(t, IsRewriteSupported(RouteRewrite{
		Source:      "/docs",
		Destination: "/articles",
		Missing:     []RouteHas{{Type: "query", Key: "preview"}},
	}))
}

func TestIsPatternSupported(t *testing.T) {
	require.True(t, isPatternSupported("/blog/:slug"))
	require.True(t, isPatternSupported("/files/*"))

	// Wildcard anywhere but the final position cannot be expressed.
	require.False(t, isPatternSupported("/files/*/preview"))

	// More capture groups than back-references can address.
	tenGroups := "/" + strings.Repeat("(a)", maxCaptureGroups+1)
	require.False(t, isPatternSupported(tenGroups))

	nineGroups := "/" + strings.Repeat("(a)", maxCaptureGroups)
	require.True(t, isPatternSupported(nineGroups))
}
