// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package nextjs

import (
	"context"
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/otiai10/copy"
	"github.com/tharvik/firebase-tools/internal/frameworks"
	"github.com/tharvik/firebase-tools/pkg/environment"
	"github.com/tharvik/firebase-tools/pkg/exec"
	"github.com/tharvik/firebase-tools/pkg/output"
	"github.com/tharvik/firebase-tools/pkg/tools/npm"
	"github.com/tidwall/gjson"
)

// sharpPackage is the native image-processing dependency required at runtime
// when image optimization is in use.
const sharpPackage = "sharp"

// assetSkipGlobs are never copied into the server bundle's static assets.
var assetSkipGlobs = []string{
	"**/.*",
	"**/node_modules",
	"**/node_modules/**",
}

// BundleOptions carries the inputs for assembling one server bundle.
type BundleOptions struct {
	// ProjectDir is the framework project root.
	ProjectDir string
	// ServerDir is where the deployable bundle is assembled.
	ServerDir string
	// DeployDomain is injected into the backend's runtime environment for
	// metadata URL resolution.
	DeployDomain string
	// ImageOptimization adds the native image-processing dependency.
	ImageOptimization bool
}

// Bundler prepares the deployable server bundle when a backend is required.
type Bundler struct {
	runner exec.CommandRunner
	deps   npm.DependencyLister
	env    *environment.Environment
}

func NewBundler(runner exec.CommandRunner, deps npm.DependencyLister, env *environment.Environment) *Bundler {
	return &Bundler{
		runner: runner,
		deps:   deps,
		env:    env,
	}
}

// Bundle assembles the server bundle: the framework config module bundled
// with production dependencies externalized, the static assets needed at
// runtime, and the environment map the caller must write into the backend's
// runtime environment. Bundling failures degrade to a raw config copy.
func (b *Bundler) Bundle(ctx context.Context, opts BundleOptions) (*frameworks.BackendBundle, error) {
	if err := os.MkdirAll(opts.ServerDir, 0755); err != nil {
		return nil, fmt.Errorf("creating server bundle directory: %w", err)
	}

	productionDeps, err := b.deps.ListProductionDependencyNames(ctx, opts.ProjectDir)
	if err != nil {
		fmt.Fprintln(output.Writer, output.WithWarningFormat(
			"Unable to walk production dependencies, bundling without externals: %v", err))
		productionDeps = map[string]struct{}{}
	}

	b.bundleConfig(ctx, opts, productionDeps)

	if err := b.copyStaticAssets(opts); err != nil {
		return nil, err
	}

	packageJSON, err := buildPackageJSON(opts.ProjectDir, productionDeps, opts.ImageOptimization)
	if err != nil {
		return nil, err
	}

	dotEnv := b.env.FileValues()
	if opts.DeployDomain != "" {
		dotEnv[environment.DeployDomainEnvVarName] = opts.DeployDomain
	}

	return &frameworks.BackendBundle{
		PackageJSON:     packageJSON,
		FrameworksEntry: "nextjs",
		DotEnv:          dotEnv,
	}, nil
}

// bundleConfig bundles the framework configuration module with every
// production dependency marked external, so only dev-only or out-of-tree
// modules are inlined. On failure the raw file is copied unmodified; the
// build proceeds either way.
func (b *Bundler) bundleConfig(ctx context.Context, opts BundleOptions, productionDeps map[string]struct{}) {
	configPath, ok := findConfigFile(opts.ProjectDir)
	if !ok {
		// No config module is valid; the runtime uses defaults.
		return
	}

	dest := filepath.Join(opts.ServerDir, "next.config.js")

	args := exec.NewRunArgs("npx", "--yes", "esbuild", configPath,
		"--bundle", "--platform=node", "--target=node18",
		"--outfile="+dest, "--log-level=error").
		WithCwd(opts.ProjectDir)
	for _, dep := range slices.Sorted(maps.Keys(productionDeps)) {
		args = args.AppendParams("--external:" + dep)
	}

	if _, err := b.runner.Run(ctx, args); err != nil {
		fmt.Fprintln(output.Writer, output.WithWarningFormat(
			"Unable to bundle %s, copying it unmodified: %v", filepath.Base(configPath), err))

		if copyErr := copyFile(configPath, filepath.Join(opts.ServerDir, filepath.Base(configPath))); copyErr != nil {
			log.Printf("config fallback copy failed: %v", copyErr)
		}
	}
}

// copyStaticAssets copies the public assets directory verbatim so the
// backend can serve uncategorized assets at runtime.
func (b *Bundler) copyStaticAssets(opts BundleOptions) error {
	publicDir := filepath.Join(opts.ProjectDir, "public")
	if _, err := os.Stat(publicDir); err != nil {
		return nil
	}

	err := copy.Copy(publicDir, filepath.Join(opts.ServerDir, "public"), copy.Options{
		Skip: func(srcInfo os.FileInfo, src, dest string) (bool, error) {
			rel, err := filepath.Rel(publicDir, src)
			if err != nil {
				return false, nil
			}
			for _, glob := range assetSkipGlobs {
				if matched, _ := doublestar.Match(glob, filepath.ToSlash(rel)); matched {
					return true, nil
				}
			}
			return false, nil
		},
	})
	if err != nil {
		return fmt.Errorf("copying static assets: %w", err)
	}

	return nil
}

// buildPackageJSON produces the manifest describing the backend's production
// dependencies, with versions taken from the project's own declarations.
func buildPackageJSON(projectDir string, productionDeps map[string]struct{}, imageOptimization bool) (map[string]any, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("reading package.json: %w", err)
	}

	dependencies := map[string]any{}
	gjson.GetBytes(data, "dependencies").ForEach(func(key, value gjson.Result) bool {
		if _, ok := productionDeps[key.String()]; ok {
			dependencies[key.String()] = value.String()
		}
		return true
	})

	if imageOptimization {
		if _, ok := dependencies[sharpPackage]; !ok {
			dependencies[sharpPackage] = "latest"
		}
	}

	packageJSON := map[string]any{
		"name":         gjson.GetBytes(data, "name").String(),
		"version":      gjson.GetBytes(data, "version").String(),
		"dependencies": dependencies,
	}

	return packageJSON, nil
}

var configFileNames = []string{"next.config.js", "next.config.mjs", "next.config.ts"}

func findConfigFile(projectDir string) (string, bool) {
	for _, name := range configFileNames {
		path := filepath.Join(projectDir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
