// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/blang/semver/v4"
	"github.com/tharvik/firebase-tools/pkg/exec"
	"github.com/tharvik/firebase-tools/pkg/tools"
)

var _ tools.ExternalTool = (*Cli)(nil)

// PackageManagerKind identifies the Node.js package manager driving a project.
type PackageManagerKind string

const (
	PackageManagerNpm  PackageManagerKind = "npm"
	PackageManagerPnpm PackageManagerKind = "pnpm"
	PackageManagerYarn PackageManagerKind = "yarn"
)

// DependencyLister lists the names of a project's production dependencies.
//
// The tree walk behind it shells out to the package manager; consumers take
// this narrow interface so they can be tested without a real tool install.
type DependencyLister interface {
	ListProductionDependencyNames(ctx context.Context, projectDir string) (map[string]struct{}, error)
}

type Cli struct {
	commandRunner  exec.CommandRunner
	packageManager PackageManagerKind
}

func NewCli(commandRunner exec.CommandRunner) *Cli {
	return &Cli{
		commandRunner:  commandRunner,
		packageManager: PackageManagerNpm,
	}
}

// NewCliWithPackageManager creates a Cli that uses the specified package manager.
func NewCliWithPackageManager(commandRunner exec.CommandRunner, pm PackageManagerKind) *Cli {
	return &Cli{
		commandRunner:  commandRunner,
		packageManager: pm,
	}
}

// DetectPackageManager probes the project's lockfiles to decide which package
// manager drives it, defaulting to npm when no lockfile is present.
func DetectPackageManager(projectDir string) PackageManagerKind {
	lockfiles := []struct {
		name string
		kind PackageManagerKind
	}{
		{"pnpm-lock.yaml", PackageManagerPnpm},
		{"yarn.lock", PackageManagerYarn},
		{"package-lock.json", PackageManagerNpm},
	}

	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(projectDir, lf.name)); err == nil {
			return lf.kind
		}
	}

	return PackageManagerNpm
}

// PackageManager returns the package manager kind used by this CLI instance.
func (cli *Cli) PackageManager() PackageManagerKind {
	return cli.packageManager
}

func (cli *Cli) versionInfoNode() tools.VersionInfo {
	return tools.VersionInfo{
		MinimumVersion: semver.Version{
			Major: 18,
			Minor: 0,
			Patch: 0},
		UpdateCommand: "Visit https://nodejs.org/en/ to upgrade",
	}
}

func (cli *Cli) CheckInstalled(ctx context.Context) error {
	// Check that the package manager binary is in PATH
	if err := tools.ToolInPath(string(cli.packageManager)); err != nil {
		return err
	}

	// Check node version (required for all Node.js package managers)
	nodeRes, err := tools.ExecuteCommand(ctx, cli.commandRunner, "node", "--version")
	if err != nil {
		return fmt.Errorf("checking %s version: %w", cli.Name(), err)
	}
	nodeSemver, err := tools.ExtractVersion(nodeRes)
	if err != nil {
		return fmt.Errorf("converting to semver version fails: %w", err)
	}
	updateDetailNode := cli.versionInfoNode()
	if nodeSemver.Compare(updateDetailNode.MinimumVersion) == -1 {
		return &tools.ErrSemver{ToolName: "Node.js", VersionInfo: updateDetailNode}
	}

	return nil
}

func (cli *Cli) InstallUrl() string {
	switch cli.packageManager {
	case PackageManagerPnpm:
		return "https://pnpm.io/installation"
	case PackageManagerYarn:
		return "https://yarnpkg.com/getting-started/install"
	default:
		return "https://nodejs.org/"
	}
}

func (cli *Cli) Name() string {
	switch cli.packageManager {
	case PackageManagerPnpm:
		return "pnpm CLI"
	case PackageManagerYarn:
		return "yarn CLI"
	default:
		return "npm CLI"
	}
}

func (cli *Cli) Install(ctx context.Context, project string) error {
	pm := string(cli.packageManager)

	var runArgs exec.RunArgs
	switch cli.packageManager {
	case PackageManagerPnpm:
		runArgs = exec.NewRunArgs(pm, "install", "--prefer-offline").WithCwd(project)
	case PackageManagerYarn:
		// Yarn Berry (v2+) deprecated --non-interactive; plain install works
		// for both Classic (v1) and Berry (v2+).
		runArgs = exec.NewRunArgs(pm, "install").WithCwd(project)
	default:
		runArgs = exec.NewRunArgs(pm, "install", "--no-audit", "--no-fund", "--prefer-offline").WithCwd(project)
	}

	_, err := cli.commandRunner.Run(ctx, runArgs)

	if err != nil {
		return fmt.Errorf("failed to install project %s using %s: %w", project, pm, err)
	}
	return nil
}

// RunScript runs a named package.json script with the given additional
// environment. Scripts absent from package.json succeed silently.
func (cli *Cli) RunScript(ctx context.Context, projectPath string, scriptName string, env []string) error {
	pm := string(cli.packageManager)

	// Yarn does not support the --if-present flag. To replicate npm's --if-present behavior
	// (silently succeed when the script doesn't exist), we check package.json first.
	if cli.packageManager == PackageManagerYarn {
		if !scriptExistsInPackageJSON(projectPath, scriptName) {
			return nil
		}
		runArgs := exec.NewRunArgs(pm, "run", scriptName).WithCwd(projectPath).WithEnv(env)
		_, err := cli.commandRunner.Run(ctx, runArgs)
		if err != nil {
			return fmt.Errorf("failed to run %s script %s, %w", pm, scriptName, err)
		}
		return nil
	}

	// npm supports --if-present after the script name.
	// pnpm requires --if-present before the script name per its CLI spec.
	var runArgs exec.RunArgs
	if cli.packageManager == PackageManagerPnpm {
		runArgs = exec.NewRunArgs(pm, "run", "--if-present", scriptName).WithCwd(projectPath)
	} else {
		runArgs = exec.NewRunArgs(pm, "run", scriptName, "--if-present").WithCwd(projectPath)
	}
	runArgs = runArgs.WithEnv(env)
	_, err := cli.commandRunner.Run(ctx, runArgs)
	if err != nil {
		return fmt.Errorf("failed to run %s script %s, %w", pm, scriptName, err)
	}

	return nil
}

// ListProductionDependencyNames walks the package manager's dependency tree
// dump and returns the set of production dependency names, at any depth.
//
// The dump can be very large for real applications, so it is filtered with a
// streaming decoder instead of being buffered whole.
func (cli *Cli) ListProductionDependencyNames(ctx context.Context, projectDir string) (map[string]struct{}, error) {
	pm := string(cli.packageManager)

	var runArgs exec.RunArgs
	switch cli.packageManager {
	case PackageManagerPnpm:
		runArgs = exec.NewRunArgs(pm, "ls", "--prod", "--depth", "Infinity", "--json")
	case PackageManagerYarn:
		// Yarn's own `list --json` emits a line-oriented log format, not a
		// dependency tree. npm can read the installed node_modules tree
		// regardless of which tool wrote the lockfile.
		runArgs = exec.NewRunArgs("npm", "ls", "--omit=dev", "--all", "--json")
	default:
		runArgs = exec.NewRunArgs(pm, "ls", "--omit=dev", "--all", "--json")
	}

	pr, pw := io.Pipe()
	runArgs = runArgs.WithCwd(projectDir).WithStdOut(pw)
	runArgs.StreamStdout = true

	runDone := make(chan error, 1)
	go func() {
		_, err := cli.commandRunner.Run(ctx, runArgs)
		pw.Close()
		runDone <- err
	}()

	names, decodeErr := collectDependencyNames(pr)

	// Drain so the runner is never blocked on a full pipe.
	_, _ = io.Copy(io.Discard, pr)
	runErr := <-runDone

	if decodeErr != nil {
		return nil, fmt.Errorf("parsing %s dependency tree: %w", pm, decodeErr)
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		// The ls commands exit non-zero on peer dependency warnings while
		// still printing a complete tree. The parsed names are usable.
		log.Printf("%s ls exited with code %d, using partial dependency tree", pm, exitErr.ExitCode)
	} else if runErr != nil {
		return nil, fmt.Errorf("listing %s dependencies: %w", pm, runErr)
	}

	return names, nil
}

// collectDependencyNames scans a dependency tree dump token by token,
// collecting the keys of every "dependencies" object at any nesting depth.
func collectDependencyNames(r io.Reader) (map[string]struct{}, error) {
	dec := json.NewDecoder(r)
	names := map[string]struct{}{}

	if err := walkValue(dec, false, names); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return names, nil
}

func walkValue(dec *json.Decoder, inDependencies bool, names map[string]struct{}) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		// Scalars carry no dependency names.
		return nil
	}

	switch delim {
	case '{':
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := keyTok.(string)
			if !ok {
				return fmt.Errorf("unexpected object key token %v", keyTok)
			}

			if inDependencies {
				names[key] = struct{}{}
			}

			if err := walkValue(dec, key == "dependencies", names); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	case '[':
		for dec.More() {
			if err := walkValue(dec, false, names); err != nil {
				return err
			}
		}
		_, err = dec.Token()
		return err
	}

	return nil
}

// scriptExistsInPackageJSON checks if a named script is defined in the project's package.json.
func scriptExistsInPackageJSON(projectPath string, scriptName string) bool {
	data, err := os.ReadFile(filepath.Join(projectPath, "package.json"))
	if err != nil {
		return false
	}

	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}

	_, exists := pkg.Scripts[scriptName]
	return exists
}
