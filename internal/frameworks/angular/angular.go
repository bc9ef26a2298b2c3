// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package angular adapts an Angular build to the hosting platform. The
// workspace/architect target subsystem is treated as an opaque read-only
// API behind WorkspaceReader.
package angular

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/tharvik/firebase-tools/internal/frameworks"
	"github.com/tharvik/firebase-tools/pkg/exec"
	"github.com/tharvik/firebase-tools/pkg/tools/npm"
	"github.com/tidwall/gjson"
)

// BuildTargets is the resolved subset of the workspace's build configuration
// this layer consumes.
type BuildTargets struct {
	// Project is the workspace's default (or only) project name.
	Project string
	// OutputPath is the build output directory, relative to the project dir.
	OutputPath string
	// BaseHref is the configured base href, empty when unset.
	BaseHref string
	// Server reports that the build produces a server output (SSR).
	Server bool
	// Locales maps locale tags to their output subpaths when i18n is
	// configured; empty otherwise.
	Locales map[string]string
	// SourceLocale is the development locale, served from the output root.
	SourceLocale string
}

// WorkspaceReader resolves build targets for a workspace. The production
// implementation reads angular.json; tests substitute a fixture.
type WorkspaceReader interface {
	Targets(projectDir string) (*BuildTargets, error)
}

// JSONWorkspaceReader resolves targets directly from the workspace file.
type JSONWorkspaceReader struct{}

func (JSONWorkspaceReader) Targets(projectDir string) (*BuildTargets, error) {
	path := filepath.Join(projectDir, "angular.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &frameworks.ManifestError{Path: path, Kind: frameworks.ManifestMissing, Err: err}
	}

	projects := gjson.GetBytes(data, "projects")
	if !projects.IsObject() || len(projects.Map()) == 0 {
		return nil, &frameworks.ManifestError{
			Path: path,
			Kind: frameworks.ManifestMalformed,
			Err:  fmt.Errorf("no projects defined"),
		}
	}

	name := gjson.GetBytes(data, "defaultProject").String()
	if name == "" {
		for key := range projects.Map() {
			name = key
			break
		}
	}

	project := projects.Get(name)
	build := project.Get("architect.build")
	options := build.Get("options")

	targets := &BuildTargets{
		Project:      name,
		OutputPath:   options.Get("outputPath").String(),
		BaseHref:     options.Get("baseHref").String(),
		SourceLocale: project.Get("i18n.sourceLocale").String(),
	}

	// The application builder folds SSR into the build target; older
	// workspaces carry a separate server target.
	targets.Server = options.Get("server").Exists() ||
		options.Get("ssr").Exists() ||
		project.Get("architect.server").Exists() ||
		options.Get("outputMode").String() == "server"

	if locales := project.Get("i18n.locales"); locales.IsObject() {
		targets.Locales = map[string]string{}
		locales.ForEach(func(key, value gjson.Result) bool {
			targets.Locales[key.String()] = key.String()
			return true
		})
	}

	return targets, nil
}

var _ frameworks.Adapter = (*Adapter)(nil)

// Adapter is the Angular frameworks adapter.
type Adapter struct {
	runner    exec.CommandRunner
	npmCli    *npm.Cli
	workspace WorkspaceReader
}

func NewAdapter(runner exec.CommandRunner, npmCli *npm.Cli, workspace WorkspaceReader) *Adapter {
	return &Adapter{
		runner:    runner,
		npmCli:    npmCli,
		workspace: workspace,
	}
}

func (a *Adapter) Name() string {
	return "angular"
}

// Build runs the workspace build and copies the browser output into the
// static tree. A server output marks the deploy as needing a backend.
func (a *Adapter) Build(ctx context.Context, opts frameworks.BuildOptions) (*frameworks.BuildResult, error) {
	targets, err := a.workspace.Targets(opts.ProjectDir)
	if err != nil {
		return nil, err
	}

	// The hosting target serves from the domain root; a shifted base href
	// would break every asset URL.
	if targets.BaseHref != "" && targets.BaseHref != "/" {
		return nil, &frameworks.UnsupportedConfigurationError{
			Setting: "baseHref",
			Value:   targets.BaseHref,
			Advice:  "remove baseHref from the build options, the hosting target requires serving from the root",
		}
	}

	if err := a.npmCli.RunScript(ctx, opts.ProjectDir, "build", opts.Environment.Overlay(nil)); err != nil {
		return nil, &frameworks.ExternalProcessError{Cmd: "ng build", Err: err}
	}

	if err := a.materialize(opts, targets); err != nil {
		return nil, err
	}

	result := &frameworks.BuildResult{
		I18n: len(targets.Locales) > 0,
	}

	if targets.Server {
		result.WantsBackend = true
		result.Reasons = []string{"server-side rendering"}
	}

	return result, nil
}

// materialize copies the browser output tree. Localized builds emit one
// subdirectory per locale: the source locale is placed at the output root,
// every other locale keeps its own directory.
func (a *Adapter) materialize(opts frameworks.BuildOptions, targets *BuildTargets) error {
	outputPath := filepath.Join(opts.ProjectDir, targets.OutputPath)

	// The application builder nests the static files under browser/.
	browserDir := filepath.Join(outputPath, "browser")
	if _, err := os.Stat(browserDir); err != nil {
		browserDir = outputPath
	}

	if len(targets.Locales) == 0 {
		if err := copy.Copy(browserDir, opts.OutputDir); err != nil {
			return fmt.Errorf("copying browser output: %w", err)
		}
		return nil
	}

	for locale, subPath := range targets.Locales {
		source := filepath.Join(browserDir, subPath)
		dest := filepath.Join(opts.OutputDir, subPath)
		if locale == targets.SourceLocale {
			dest = opts.OutputDir
		}

		if _, err := os.Stat(source); err != nil {
			// Locale configured but not built; not fatal for the others.
			continue
		}
		if err := copy.Copy(source, dest); err != nil {
			return fmt.Errorf("copying locale %s: %w", locale, err)
		}
	}

	return nil
}
