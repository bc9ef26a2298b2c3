// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package frameworks adapts a web framework's build output to the hosting
// platform's configuration model: it decides which routes can be served
// statically, whether a live backend is required, and how static output is
// laid out on disk.
package frameworks

import (
	"context"

	"github.com/tharvik/firebase-tools/pkg/environment"
)

// Adapter translates one framework's build output into hosting artifacts.
type Adapter interface {
	Name() string
	Build(ctx context.Context, options BuildOptions) (*BuildResult, error)
}

// BuildOptions carries the per-invocation inputs of a build.
type BuildOptions struct {
	// ProjectDir is the root of the framework project.
	ProjectDir string
	// OutputDir is where the CDN-servable static tree is materialized.
	OutputDir string
	// ServerDir is where the deployable server bundle is assembled when a
	// backend turns out to be required.
	ServerDir string
	// DeployDomains are the domains registered for the current deploy target,
	// used for locale-to-domain resolution and metadata URL injection.
	DeployDomains []string
	// Environment is the layered build environment. Required.
	Environment *environment.Environment
}

// HeaderField is a single header applied by a HeaderRule.
type HeaderField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HeaderRule applies headers to responses matching Source.
type HeaderRule struct {
	Source  string        `json:"source"`
	Headers []HeaderField `json:"headers"`
}

// RedirectRule redirects requests matching Source.
type RedirectRule struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	StatusCode  int    `json:"statusCode"`
}

// RewriteRule internally rewrites requests matching Source.
type RewriteRule struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// BuildResult is the outcome of a framework build translation, consumed by
// the hosting config writer.
type BuildResult struct {
	// WantsBackend reports whether any route or rule requires a live backend.
	WantsBackend bool
	// Reasons lists why a backend is required, in insertion order.
	Reasons []string

	// Headers, Redirects and Rewrites are the framework rules that translate
	// 1:1 into the hosting platform's rule engine. Unsupported rules are not
	// listed here; their whole category is delegated to the backend instead.
	Headers   []HeaderRule
	Redirects []RedirectRule
	Rewrites  []RewriteRule

	TrailingSlash bool
	I18n          bool
	BaseURL       string

	// Backend describes the packaged server bundle. Nil when no backend is
	// required.
	Backend *BackendBundle
}

// BackendBundle describes the deployable server bundle produced when a
// backend is required.
type BackendBundle struct {
	// PackageJSON is the manifest describing the backend's production
	// dependencies, to be written into the server bundle.
	PackageJSON map[string]any
	// FrameworksEntry names the framework whose runtime serves the bundle.
	FrameworksEntry string
	// DotEnv is the environment the caller must write into the backend's
	// runtime environment.
	DotEnv map[string]string
}
