// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package npm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tharvik/firebase-tools/pkg/exec"
	"github.com/tharvik/firebase-tools/pkg/tools"
	"github.com/tharvik/firebase-tools/test/mocks/mockexec"
)

func TestDetectPackageManager(t *testing.T) {
	cases := []struct {
		lockfile string
		expected PackageManagerKind
	}{
		{"package-lock.json", PackageManagerNpm},
		{"pnpm-lock.yaml", PackageManagerPnpm},
		{"yarn.lock", PackageManagerYarn},
		{"", PackageManagerNpm},
	}

	for _, c := range cases {
		dir := t.TempDir()
		if c.lockfile != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, c.lockfile), []byte{}, 0600))
		}
		require.Equal(t, c.expected, DetectPackageManager(dir))
	}
}

func TestRunScriptPassesEnv(t *testing.T) {
	var runArgs exec.RunArgs

	runner := mockexec.NewMockCommandRunner()
	runner.
		When(func(args exec.RunArgs, command string) bool {
			return strings.Contains(command, "npm run build")
		}).
		RespondFn(func(args exec.RunArgs) (exec.RunResult, error) {
			runArgs = args
			return exec.NewRunResult(0, "", ""), nil
		})

	cli := NewCli(runner)
	err := cli.RunScript(context.Background(), "/proj", "build", []string{"X_DEPLOY_DOMAIN=example.com"})
	require.NoError(t, err)
	require.Equal(t, "npm", runArgs.Cmd)
	require.Equal(t, []string{"run", "build", "--if-present"}, runArgs.Args)
	require.Equal(t, "/proj", runArgs.Cwd)
	require.Contains(t, runArgs.Env, "X_DEPLOY_DOMAIN=example.com")
}

func TestListProductionDependencyNames(t *testing.T) {
	tree := `{
		"name": "app",
		"version": "1.0.0",
		"dependencies": {
			"next": {
				"version": "14.2.0",
				"dependencies": {
					"styled-jsx": {"version": "5.1.1"},
					"postcss": {
						"version": "8.4.31",
						"dependencies": {
							"nanoid": {"version": "3.3.6"}
						}
					}
				}
			},
			"react": {"version": "18.3.1"}
		}
	}`

	runner := mockexec.NewMockCommandRunner()
	runner.
		When(func(args exec.RunArgs, command string) bool {
			return strings.Contains(command, "npm ls")
		}).
		Respond(exec.NewRunResult(0, tree, ""))

	cli := NewCli(runner)
	names, err := cli.ListProductionDependencyNames(context.Background(), "/proj")
	require.NoError(t, err)

	for _, name := range []string{"next", "react", "styled-jsx", "postcss", "nanoid"} {
		require.Contains(t, names, name)
	}
	require.NotContains(t, names, "app")
	require.Len(t, names, 5)
}

func TestListProductionDependencyNamesPnpmArray(t *testing.T) {
	// pnpm emits a one-element array at the top level.
	tree := `[{"name": "app", "dependencies": {"next": {"version": "14.2.0"}}}]`

	runner := mockexec.NewMockCommandRunner()
	runner.
		When(func(args exec.RunArgs, command string) bool {
			return strings.Contains(command, "pnpm ls")
		}).
		Respond(exec.NewRunResult(0, tree, ""))

	cli := NewCliWithPackageManager(runner, PackageManagerPnpm)
	names, err := cli.ListProductionDependencyNames(context.Background(), "/proj")
	require.NoError(t, err)
	require.Contains(t, names, "next")
	require.Len(t, names, 1)
}

func TestCollectDependencyNamesMalformed(t *testing.T) {
	_, err := collectDependencyNames(strings.NewReader(`{"dependencies": {`))
	require.Error(t, err)
}

func TestCheckInstalled(t *testing.T) {
	if tools.ToolInPath("npm") != nil {
		t.Skip("npm is not installed on this machine")
	}

	runner := mockexec.NewMockCommandRunner().
		When(func(args exec.RunArgs, command string) bool {
			return command == "node --version"
		}).
		Respond(exec.NewRunResult(0, "v20.11.1", ""))

	require.NoError(t, NewCli(runner).CheckInstalled(context.Background()))
}

func TestCheckInstalledOldNode(t *testing.T) {
	if tools.ToolInPath("npm") != nil {
		t.Skip("npm is not installed on this machine")
	}

	runner := mockexec.NewMockCommandRunner().
		When(func(args exec.RunArgs, command string) bool {
			return command == "node --version"
		}).
		Respond(exec.NewRunResult(0, "v16.20.2", ""))

	err := NewCli(runner).CheckInstalled(context.Background())
	require.Error(t, err)

	var semverErr *tools.ErrSemver
	require.ErrorAs(t, err, &semverErr)
	require.Equal(t, "Node.js", semverErr.ToolName)
}
