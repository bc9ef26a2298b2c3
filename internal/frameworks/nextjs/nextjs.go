// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package nextjs adapts a Next.js build to the hosting platform: it runs the
// framework build, classifies the route universe, materializes the static
// output tree and, when a live backend is required, assembles the server
// bundle.
package nextjs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/tharvik/firebase-tools/internal/frameworks"
	"github.com/tharvik/firebase-tools/pkg/environment"
	"github.com/tharvik/firebase-tools/pkg/exec"
	"github.com/tharvik/firebase-tools/pkg/tools/npm"
	"github.com/tidwall/gjson"
)

// requiredServerFilesName carries the resolved framework configuration of a
// build.
const requiredServerFilesName = "required-server-files.json"

var _ frameworks.Adapter = (*Adapter)(nil)

// Adapter is the Next.js frameworks adapter.
type Adapter struct {
	runner  exec.CommandRunner
	npmCli  *npm.Cli
	version semver.Version
}

func NewAdapter(runner exec.CommandRunner, npmCli *npm.Cli, version semver.Version) *Adapter {
	return &Adapter{
		runner:  runner,
		npmCli:  npmCli,
		version: version,
	}
}

func (a *Adapter) Name() string {
	return "nextjs"
}

// buildConfig is the subset of the framework's resolved configuration this
// layer consumes.
type buildConfig struct {
	distDir           string
	trailingSlash     bool
	imageOptimization bool
}

// Build runs the framework's own build command, classifies its output, and
// produces the hosting artifacts. Classification completes fully before
// bundling and materialization run.
func (a *Adapter) Build(ctx context.Context, opts frameworks.BuildOptions) (*frameworks.BuildResult, error) {
	deployDomain := ""
	if len(opts.DeployDomains) > 0 {
		deployDomain = opts.DeployDomains[0]
	}

	buildEnv := opts.Environment.Overlay(map[string]string{
		environment.DeployDomainEnvVarName: deployDomain,
	})

	if err := a.npmCli.RunScript(ctx, opts.ProjectDir, "build", buildEnv); err != nil {
		return nil, &frameworks.ExternalProcessError{Cmd: "next build", Err: err}
	}

	config, err := readBuildConfig(opts.ProjectDir)
	if err != nil {
		return nil, err
	}

	distDir := filepath.Join(opts.ProjectDir, config.distDir)
	caps := ResolveCapabilities(a.version, distDir)

	manifests, err := LoadManifests(distDir, caps)
	if err != nil {
		return nil, err
	}

	summary := Classify(manifests, caps, ClassifyOptions{
		ImageOptimization: config.imageOptimization,
		TrailingSlash:     config.trailingSlash,
		DistDir:           distDir,
	})

	locales := ResolveLocales(manifests.Routes.I18n, opts.DeployDomains)

	materializer := NewMaterializer(distDir, opts.OutputDir, manifests, summary, locales)
	if err := materializer.Run(ctx); err != nil {
		return nil, err
	}

	result := &frameworks.BuildResult{
		WantsBackend:  summary.WantsBackend(),
		Reasons:       summary.Reasons(),
		Headers:       summary.Headers,
		Redirects:     summary.Redirects,
		Rewrites:      summary.Rewrites,
		TrailingSlash: summary.TrailingSlash,
		I18n:          summary.I18n,
		BaseURL:       summary.BasePath,
	}

	if summary.WantsBackend() {
		bundler := NewBundler(a.runner, a.npmCli, opts.Environment)
		bundle, err := bundler.Bundle(ctx, BundleOptions{
			ProjectDir:        opts.ProjectDir,
			ServerDir:         opts.ServerDir,
			DeployDomain:      deployDomain,
			ImageOptimization: config.imageOptimization,
		})
		if err != nil {
			return nil, err
		}
		result.Backend = bundle
	}

	return result, nil
}

// readBuildConfig probes the build's resolved configuration. The file lives
// inside the build directory itself, so the default directory name is tried
// first; when a custom distDir relocated the build tree, the project's
// immediate subdirectories are probed for it instead.
func readBuildConfig(projectDir string) (buildConfig, error) {
	config := buildConfig{distDir: ".next"}

	path := filepath.Join(projectDir, config.distDir, requiredServerFilesName)
	data, err := os.ReadFile(path)
	if err != nil {
		if found, ok := findBuildDir(projectDir); ok {
			config.distDir = found
			path = filepath.Join(projectDir, found, requiredServerFilesName)
			data, err = os.ReadFile(path)
		}
	}
	if err != nil {
		return config, &frameworks.ManifestError{
			Path: path,
			Kind: frameworks.ManifestMissing,
			Err:  fmt.Errorf("did the framework build run? %w", err),
		}
	}

	if distDir := gjson.GetBytes(data, "config.distDir").String(); distDir != "" {
		config.distDir = distDir
	}
	config.trailingSlash = gjson.GetBytes(data, "config.trailingSlash").Bool()

	images := gjson.GetBytes(data, "config.images")
	config.imageOptimization = images.Exists() &&
		!images.Get("unoptimized").Bool() &&
		images.Get("loader").String() == "default"

	return config, nil
}

// findBuildDir scans the project's immediate subdirectories for a relocated
// build tree, identified by the configuration dump it carries.
func findBuildDir(projectDir string) (string, bool) {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		return "", false
	}

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == "node_modules" || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(projectDir, entry.Name(), requiredServerFilesName)); err == nil {
			return entry.Name(), true
		}
	}

	return "", false
}
