// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tharvik/firebase-tools/internal/frameworks"
)

// notFoundRoute is the synthetic not-found component of the app router.
const notFoundRoute = "/_not-found"

// ClassifyOptions carries the configuration-derived inputs of a
// classification pass.
type ClassifyOptions struct {
	// ImageOptimization reports that the project uses server-side image
	// transformation.
	ImageOptimization bool
	TrailingSlash     bool
	// DistDir is the framework build directory, used for on-disk existence
	// checks (static not-found fallback).
	DistDir string
}

// Summary is the outcome of classifying the route universe. It is fully
// computed before any materialization begins.
type Summary struct {
	reasons *frameworks.ReasonSet

	// Supported rule subsets, translated for the hosting rule engine.
	Headers   []frameworks.HeaderRule
	Redirects []frameworks.RedirectRule
	Rewrites  []frameworks.RewriteRule

	TrailingSlash bool
	I18n          bool
	BasePath      string

	// excludedRoutes maps a route to the reason it must not be copied
	// statically.
	excludedRoutes map[string]string
	// excludePatterns are compiled matchers (middleware, unsupported rules)
	// that gate routes away from static serving.
	excludePatterns []*regexp.Regexp
}

// WantsBackend reports whether any reason for a live backend was found. It
// depends only on the reason set, never on display truncation.
func (s *Summary) WantsBackend() bool {
	return !s.reasons.Empty()
}

// Reasons returns the accumulated backend reasons in insertion order.
func (s *Summary) Reasons() []string {
	return s.reasons.List()
}

// DescribeReasons renders the reasons for console display.
func (s *Summary) DescribeReasons() string {
	return s.reasons.Describe()
}

// ExcludedFromStatic reports whether a route must be left to the backend
// rather than copied into the static output tree, and why.
func (s *Summary) ExcludedFromStatic(route string) (string, bool) {
	if why, ok := s.excludedRoutes[route]; ok {
		return why, true
	}

	for _, pattern := range s.excludePatterns {
		if pattern.MatchString(route) {
			return fmt.Sprintf("matched by %s", pattern), true
		}
	}

	return "", false
}

// Classify partitions the route universe and accumulates the reasons a
// backend is required, per the algorithm described on the package.
func Classify(m *Manifests, caps Capabilities, opts ClassifyOptions) *Summary {
	s := &Summary{
		reasons:        frameworks.NewReasonSet(),
		TrailingSlash:  opts.TrailingSlash,
		I18n:           m.Routes.I18n != nil,
		BasePath:       m.Routes.BasePath,
		excludedRoutes: map[string]string{},
	}

	// Middleware gates its matched paths through the backend regardless of
	// any other classification.
	matchers := m.Middleware.Matchers()
	if len(matchers) > 0 {
		s.reasons.Add("middleware")
	}
	for _, matcher := range matchers {
		s.addExcludePattern(matcher.Regexp)
	}

	if opts.ImageOptimization {
		s.reasons.Add("Image Optimization")
	}

	for _, pattern := range slices.Sorted(maps.Keys(m.Prerender.DynamicRoutes)) {
		if m.Prerender.DynamicRoutes[pattern].Fallback.RequiresBackend() {
			s.reasons.Add("use of fallback " + pattern)
		}
	}

	for _, path := range slices.Sorted(maps.Keys(m.Prerender.Routes)) {
		route := m.Prerender.Routes[path]
		if route.InitialRevalidateSeconds.Enabled {
			owner := path
			if route.SrcRoute != nil && *route.SrcRoute != "" {
				owner = *route.SrcRoute
			}
			s.reasons.Add("use of revalidate " + owner)
			s.excludedRoutes[path] = "revalidate"
		}

		if caps.PPR && route.ExperimentalPPR {
			s.reasons.Add("use of partial prerendering " + path)
			s.excludedRoutes[path] = "partial prerendering"
		}
	}

	s.classifyPages(m)
	s.classifyAppRoutes(m, caps, opts.DistDir)

	if caps.ServerActions {
		for _, route := range slices.Sorted(maps.Keys(m.Actions.RoutesWithActions())) {
			s.reasons.Add("route with server action " + route)
			s.excludedRoutes[route] = "server action"
		}
	}

	s.classifyRules(m)

	return s
}

// classifyPages finds routes present in the pages manifest but absent from
// both the prerendered set and the dynamic routes: those are server-rendered
// on every request.
func (s *Summary) classifyPages(m *Manifests) {
	for _, route := range slices.Sorted(maps.Keys(m.Pages)) {
		if isReservedPage(route) {
			continue
		}
		if strings.HasSuffix(m.Pages[route], ".html") {
			// Literal HTML output, static by construction.
			continue
		}
		if _, ok := m.Prerender.Routes[route]; ok {
			continue
		}
		if _, ok := m.Prerender.DynamicRoutes[route]; ok {
			continue
		}

		log.Printf("unable to serve %s statically", route)
		s.reasons.Add("non-static routes")
		s.excludedRoutes[route] = "non-static"
	}
}

// classifyAppRoutes applies the same non-static test to routes reachable only
// through the app-path manifests. The synthetic not-found component is
// exempt when a static fallback copy of it exists on disk.
func (s *Summary) classifyAppRoutes(m *Manifests, caps Capabilities, distDir string) {
	if !caps.AppDir {
		return
	}

	for _, appPath := range slices.Sorted(maps.Keys(m.AppRoutes)) {
		route := m.AppRoutes[appPath]
		if _, ok := m.Pages[route]; ok {
			continue
		}
		if _, ok := m.Prerender.Routes[route]; ok {
			continue
		}
		if dynamic, ok := m.Prerender.DynamicRoutes[route]; ok && dynamic.Fallback.RequiresBackend() {
			continue
		}

		if route == notFoundRoute && staticNotFoundExists(distDir) {
			continue
		}

		log.Printf("unable to serve app route %s statically", route)
		s.reasons.Add("non-static routes")
		s.excludedRoutes[route] = "non-static"
	}
}

func staticNotFoundExists(distDir string) bool {
	_, err := os.Stat(filepath.Join(distDir, "server", "app", "_not-found.html"))
	return err == nil
}

// classifyRules scans the header/redirect/rewrite rule sets. The supported
// subset of each kind is translated for the hosting rule engine; a single
// unsupported rule marks the whole kind as requiring the backend, regardless
// of how many rules of that kind exist.
func (s *Summary) classifyRules(m *Manifests) {
	for _, header := range m.Routes.Headers {
		if !IsHeaderSupported(header) {
			s.reasons.Add("advanced headers")
			s.addExcludePattern(header.Regex)
			continue
		}
		s.Headers = append(s.Headers, frameworks.HeaderRule{
			Source:  CleanEscapedChars(header.Source),
			Headers: header.Headers,
		})
	}

	for _, redirect := range m.Routes.Redirects {
		if redirect.Internal {
			// Framework-generated plumbing, not a user rule.
			continue
		}
		if !IsRedirectSupported(redirect) {
			s.reasons.Add("advanced redirects")
			s.addExcludePattern(redirect.Regex)
			continue
		}
		s.Redirects = append(s.Redirects, frameworks.RedirectRule{
			Source:      CleanEscapedChars(redirect.Source),
			Destination: redirect.Destination,
			StatusCode:  redirectStatusCode(redirect),
		})
	}

	for _, rewrite := range m.Routes.Rewrites.Rules() {
		if !IsRewriteSupported(rewrite) {
			s.reasons.Add("advanced rewrites")
			s.addExcludePattern(rewrite.Regex)
			continue
		}
		s.Rewrites = append(s.Rewrites, frameworks.RewriteRule{
			Source:      CleanEscapedChars(rewrite.Source),
			Destination: rewrite.Destination,
		})
	}

	// Fallback rewrites run after the filesystem; the hosting rule engine has
	// no equivalent phase.
	if len(m.Routes.Rewrites.Fallback) > 0 {
		s.reasons.Add("advanced rewrites")
		for _, rewrite := range m.Routes.Rewrites.Fallback {
			s.addExcludePattern(rewrite.Regex)
		}
	}
}

func (s *Summary) addExcludePattern(expr string) {
	if expr == "" {
		return
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		// Manifest regexes target the JS engine; the rare incompatible one is
		// logged rather than failing the build.
		log.Printf("ignoring non-compilable matcher %q: %v", expr, err)
		return
	}

	s.excludePatterns = append(s.excludePatterns, pattern)
}

func redirectStatusCode(redirect RouteRedirect) int {
	if redirect.StatusCode != 0 {
		return redirect.StatusCode
	}
	if redirect.Permanent {
		return 308
	}
	return 307
}

// isReservedPage reports framework-internal page entries that never serve a
// public route directly.
func isReservedPage(route string) bool {
	switch route {
	case "/_app", "/_document", "/_error":
		return true
	}
	return strings.HasPrefix(route, "/api/") || route == "/api"
}
