// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tharvik/firebase-tools/internal/frameworks"
)

// Manifest file names, relative to the framework's build directory.
const (
	routesManifestName          = "routes-manifest.json"
	prerenderManifestName       = "prerender-manifest.json"
	pagesManifestName           = "pages-manifest.json"
	appPathsManifestName        = "app-paths-manifest.json"
	appPathRoutesManifestName   = "app-path-routes-manifest.json"
	middlewareManifestName      = "middleware-manifest.json"
	serverReferenceManifestName = "server-reference-manifest.json"
)

// RouteHas is a request-matching condition ("has"/"missing") attached to a
// routing rule. The hosting platform's rule engine cannot express these.
type RouteHas struct {
	Type  string `json:"type"`
	Key   string `json:"key,omitempty"`
	Value string `json:"value,omitempty"`
}

// RouteHeader is a header rule from the routes manifest.
type RouteHeader struct {
	Source  string                   `json:"source"`
	Regex   string                   `json:"regex,omitempty"`
	Headers []frameworks.HeaderField `json:"headers"`
	Has     []RouteHas               `json:"has,omitempty"`
	Missing []RouteHas               `json:"missing,omitempty"`
}

// RouteRedirect is a redirect rule from the routes manifest.
type RouteRedirect struct {
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Regex       string     `json:"regex,omitempty"`
	StatusCode  int        `json:"statusCode,omitempty"`
	Permanent   bool       `json:"permanent,omitempty"`
	Internal    bool       `json:"internal,omitempty"`
	Has         []RouteHas `json:"has,omitempty"`
	Missing     []RouteHas `json:"missing,omitempty"`
}

// RouteRewrite is a rewrite rule from the routes manifest.
type RouteRewrite struct {
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Regex       string     `json:"regex,omitempty"`
	Has         []RouteHas `json:"has,omitempty"`
	Missing     []RouteHas `json:"missing,omitempty"`
}

// RewritesField accepts both manifest shapes for rewrites: a plain array
// (older builds) and the {beforeFiles, afterFiles, fallback} object.
type RewritesField struct {
	BeforeFiles []RouteRewrite `json:"beforeFiles"`
	AfterFiles  []RouteRewrite `json:"afterFiles"`
	Fallback    []RouteRewrite `json:"fallback"`
}

func (r *RewritesField) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &r.AfterFiles)
	}

	type alias RewritesField
	return json.Unmarshal(trimmed, (*alias)(r))
}

// Rules returns the rewrites eligible for translation, in matching order.
// Fallback rewrites run after the filesystem and never translate 1:1.
func (r *RewritesField) Rules() []RouteRewrite {
	rules := make([]RouteRewrite, 0, len(r.BeforeFiles)+len(r.AfterFiles))
	rules = append(rules, r.BeforeFiles...)
	rules = append(rules, r.AfterFiles...)
	return rules
}

// DomainLocales maps a serving domain to the subset of locales it serves.
type DomainLocales struct {
	Domain        string   `json:"domain"`
	DefaultLocale string   `json:"defaultLocale"`
	Locales       []string `json:"locales"`
}

// I18nConfig is the internationalization block of the routes manifest.
type I18nConfig struct {
	Locales       []string        `json:"locales"`
	DefaultLocale string          `json:"defaultLocale"`
	Domains       []DomainLocales `json:"domains,omitempty"`
}

// RoutesManifest describes the routing rules of a build.
type RoutesManifest struct {
	Version   int             `json:"version"`
	BasePath  string          `json:"basePath"`
	Headers   []RouteHeader   `json:"headers"`
	Redirects []RouteRedirect `json:"redirects"`
	Rewrites  RewritesField   `json:"rewrites"`
	I18n      *I18nConfig     `json:"i18n,omitempty"`
}

// Validate enforces the manifest's internal invariants.
func (m *RoutesManifest) Validate() error {
	if m.I18n == nil {
		return nil
	}

	known := map[string]struct{}{}
	for _, locale := range m.I18n.Locales {
		known[locale] = struct{}{}
	}

	// Every locale referenced by a domain mapping must exist in the top-level
	// locale set.
	for _, domain := range m.I18n.Domains {
		for _, locale := range append([]string{domain.DefaultLocale}, domain.Locales...) {
			if _, ok := known[locale]; !ok {
				return fmt.Errorf("domain %s references locale %q not present in i18n.locales", domain.Domain, locale)
			}
		}
	}

	return nil
}

// Revalidate is the initialRevalidateSeconds field: false for a permanently
// static route, or a positive window in seconds.
type Revalidate struct {
	Enabled bool
	Seconds int
}

func (r *Revalidate) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("false")) {
		*r = Revalidate{}
		return nil
	}

	var seconds int
	if err := json.Unmarshal(trimmed, &seconds); err != nil {
		return fmt.Errorf("initialRevalidateSeconds must be false or a number: %w", err)
	}

	*r = Revalidate{Enabled: seconds > 0, Seconds: seconds}
	return nil
}

// Fallback is the fallback field of a dynamic route: false (pre-rendered
// instances only), true or a fallback page path (classic fallback builds),
// or null ("blocking").
type Fallback struct {
	Defined  bool
	Blocking bool
	Page     string
}

func (f *Fallback) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("false")):
		*f = Fallback{}
	case bytes.Equal(trimmed, []byte("true")):
		*f = Fallback{Defined: true}
	case bytes.Equal(trimmed, []byte("null")):
		*f = Fallback{Defined: true, Blocking: true}
	default:
		var page string
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return fmt.Errorf("fallback must be a boolean, null or a string: %w", err)
		}
		*f = Fallback{Defined: true, Page: page}
	}

	return nil
}

// RequiresBackend reports whether unrendered instances of the route must be
// resolved by a live backend at request time.
func (f Fallback) RequiresBackend() bool {
	return f.Defined
}

// PrerenderRoute is a statically prerendered route.
type PrerenderRoute struct {
	SrcRoute                 *string    `json:"srcRoute"`
	InitialRevalidateSeconds Revalidate `json:"initialRevalidateSeconds"`
	DataRoute                string     `json:"dataRoute"`
	ExperimentalPPR          bool       `json:"experimentalPPR,omitempty"`
}

// DynamicRoute is a dynamic route pattern with a fallback strategy.
type DynamicRoute struct {
	RouteRegex     string   `json:"routeRegex"`
	Fallback       Fallback `json:"fallback"`
	DataRoute      string   `json:"dataRoute,omitempty"`
	DataRouteRegex string   `json:"dataRouteRegex,omitempty"`
}

// PrerenderManifest lists prerendered routes and dynamic route patterns.
type PrerenderManifest struct {
	Version       int                       `json:"version"`
	Routes        map[string]PrerenderRoute `json:"routes"`
	DynamicRoutes map[string]DynamicRoute   `json:"dynamicRoutes"`
}

// PagesManifest maps route paths to their source modules (pages router).
type PagesManifest map[string]string

// AppPathsManifest maps app-router module paths to their source files.
type AppPathsManifest map[string]string

// AppPathRoutesManifest maps app-router module paths to public routes.
type AppPathRoutesManifest map[string]string

// MiddlewareMatcher is a single middleware matcher expression.
type MiddlewareMatcher struct {
	Regexp         string `json:"regexp"`
	OriginalSource string `json:"originalSource,omitempty"`
}

// MiddlewareEntry describes one middleware module and its matchers.
type MiddlewareEntry struct {
	Name     string              `json:"name"`
	Page     string              `json:"page"`
	Matchers []MiddlewareMatcher `json:"matchers"`
}

// MiddlewareManifest lists middleware modules keyed by page.
type MiddlewareManifest struct {
	Version    int                        `json:"version"`
	Middleware map[string]MiddlewareEntry `json:"middleware"`
	Functions  map[string]MiddlewareEntry `json:"functions"`
}

// Matchers returns every middleware matcher in the manifest.
func (m *MiddlewareManifest) Matchers() []MiddlewareMatcher {
	var matchers []MiddlewareMatcher
	for _, entry := range m.Middleware {
		matchers = append(matchers, entry.Matchers...)
	}
	return matchers
}

// ActionEntry records the pages bound to one server action.
type ActionEntry struct {
	Workers map[string]json.RawMessage `json:"workers"`
}

// ActionManifest is the server-reference manifest: per execution environment,
// the actions and the pages that bind them.
type ActionManifest struct {
	Node map[string]ActionEntry `json:"node"`
	Edge map[string]ActionEntry `json:"edge"`
}

// RoutesWithActions returns the set of public routes that bind at least one
// server action, for either execution environment.
func (m *ActionManifest) RoutesWithActions() map[string]struct{} {
	routes := map[string]struct{}{}
	for _, env := range []map[string]ActionEntry{m.Node, m.Edge} {
		for _, entry := range env {
			for worker := range entry.Workers {
				routes[appPathToRoute(worker)] = struct{}{}
			}
		}
	}
	return routes
}

// appPathToRoute converts an app-router module path ("app/dashboard/page")
// into its public route ("/dashboard").
func appPathToRoute(appPath string) string {
	route := strings.TrimPrefix(appPath, "app")
	for _, suffix := range []string{"/page", "/route"} {
		route = strings.TrimSuffix(route, suffix)
	}
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}

// readManifest loads and type-validates one JSON manifest. Missing files
// yield a ManifestMissing error so callers can decide whether the manifest is
// optional for the framework version in use; anything unparsable is
// ManifestMalformed. There are no retries: a bad manifest is a build
// precondition failure.
func readManifest[T any](path string) (T, error) {
	var value T

	data, err := os.ReadFile(path)
	if err != nil {
		kind := frameworks.ManifestMalformed
		if errors.Is(err, os.ErrNotExist) {
			kind = frameworks.ManifestMissing
		}
		return value, &frameworks.ManifestError{Path: path, Kind: kind, Err: err}
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, &frameworks.ManifestError{Path: path, Kind: frameworks.ManifestMalformed, Err: err}
	}

	return value, nil
}

// Manifests is the full set of build manifests for one invocation. They are
// read once, held in memory for the classification pass, and never persisted.
type Manifests struct {
	Routes     RoutesManifest
	Prerender  PrerenderManifest
	Pages      PagesManifest
	AppPaths   AppPathsManifest
	AppRoutes  AppPathRoutesManifest
	Middleware MiddlewareManifest
	Actions    ActionManifest
}

// LoadManifests reads every manifest the capability set says this build
// produces. Routes, prerender and pages manifests are mandatory; app-router
// and server-action manifests exist only in newer framework versions and
// default to empty structures when the capability is absent.
func LoadManifests(distDir string, caps Capabilities) (*Manifests, error) {
	m := &Manifests{}

	var err error
	if m.Routes, err = readManifest[RoutesManifest](filepath.Join(distDir, routesManifestName)); err != nil {
		return nil, err
	}
	if err := m.Routes.Validate(); err != nil {
		return nil, &frameworks.ManifestError{
			Path: filepath.Join(distDir, routesManifestName),
			Kind: frameworks.ManifestMalformed,
			Err:  err,
		}
	}

	if m.Prerender, err = readManifest[PrerenderManifest](filepath.Join(distDir, prerenderManifestName)); err != nil {
		return nil, err
	}

	if m.Pages, err = readManifest[PagesManifest](filepath.Join(distDir, "server", pagesManifestName)); err != nil {
		return nil, err
	}

	// The middleware manifest appears whenever the build has any server
	// components; absence simply means no middleware.
	m.Middleware, err = readManifest[MiddlewareManifest](filepath.Join(distDir, "server", middlewareManifestName))
	if err != nil && !isManifestMissing(err) {
		return nil, err
	}

	if caps.AppDir {
		if m.AppPaths, err = readManifest[AppPathsManifest](filepath.Join(distDir, "server", appPathsManifestName)); err != nil {
			return nil, err
		}
		if m.AppRoutes, err = readManifest[AppPathRoutesManifest](filepath.Join(distDir, appPathRoutesManifestName)); err != nil {
			return nil, err
		}
	}

	if caps.ServerActions {
		if m.Actions, err = readManifest[ActionManifest](filepath.Join(distDir, "server", serverReferenceManifestName)); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func isManifestMissing(err error) bool {
	var manifestErr *frameworks.ManifestError
	return errors.As(err, &manifestErr) && manifestErr.Kind == frameworks.ManifestMissing
}
