// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tharvik/firebase-tools/internal/frameworks"
	"github.com/tharvik/firebase-tools/internal/frameworks/angular"
	"github.com/tharvik/firebase-tools/internal/frameworks/nextjs"
	"github.com/tharvik/firebase-tools/pkg/environment"
	"github.com/tharvik/firebase-tools/pkg/exec"
	"github.com/tharvik/firebase-tools/pkg/output"
	"github.com/tharvik/firebase-tools/pkg/tools/npm"
)

type buildFlags struct {
	projectDir    string
	outputDir     string
	serverDir     string
	deployDomains []string
	envFile       string
}

func newBuildCmd(root *rootFlags) *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the framework project and assemble hosting artifacts",
		Long: heredoc.Doc(`
			Build the framework project and assemble hosting artifacts.

			Runs the framework's own build command, decides which routes can be
			served statically and whether a live backend is required, copies the
			static output tree, and when needed packages the server bundle.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, root, flags)
		},
	}

	cmd.Flags().StringVar(&flags.projectDir, "project-dir", ".", "Framework project root")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "hosting", "Destination of the static output tree")
	cmd.Flags().StringVar(&flags.serverDir, "server-dir", "server", "Destination of the server bundle, when one is needed")
	cmd.Flags().StringSliceVar(&flags.deployDomains, "deploy-domain", nil, "Domains registered for this deploy target")
	cmd.Flags().StringVar(&flags.envFile, "env-file", ".env", "Per-project environment file, merged under the process environment")

	return cmd
}

func runBuild(cmd *cobra.Command, root *rootFlags, flags *buildFlags) error {
	ctx := cmd.Context()

	env, err := environment.FromFile(filepath.Join(flags.projectDir, flags.envFile), os.Environ())
	if err != nil {
		return err
	}

	runner := exec.NewCommandRunner(&exec.RunnerOptions{DebugLogging: root.debug})

	detected, err := frameworks.Detect(flags.projectDir)
	if err != nil {
		return err
	}

	npmCli := npm.NewCliWithPackageManager(runner, npm.DetectPackageManager(detected.Dir))
	if err := npmCli.CheckInstalled(ctx); err != nil {
		return fmt.Errorf("%w. Install it from %s", err, npmCli.InstallUrl())
	}

	var adapter frameworks.Adapter
	switch detected.Kind {
	case frameworks.KindNextJs:
		adapter = nextjs.NewAdapter(runner, npmCli, detected.Version)
	case frameworks.KindAngular:
		adapter = angular.NewAdapter(runner, npmCli, angular.JSONWorkspaceReader{})
	default:
		return fmt.Errorf("no adapter for framework %q", detected.Kind)
	}

	fmt.Fprintf(output.Writer, "Building %s project at %s\n",
		output.WithHighLightFormat(adapter.Name()), detected.Dir)

	result, err := adapter.Build(ctx, frameworks.BuildOptions{
		ProjectDir:    detected.Dir,
		OutputDir:     flags.outputDir,
		ServerDir:     flags.serverDir,
		DeployDomains: flags.deployDomains,
		Environment:   env,
	})
	if err != nil {
		return err
	}

	if result.WantsBackend {
		reasons := frameworks.NewReasonSet()
		for _, reason := range result.Reasons {
			reasons.Add(reason)
		}
		fmt.Fprintf(output.Writer, "A backend is required:\n%s", reasons.Describe())
	} else {
		fmt.Fprintln(output.Writer, output.WithSuccessFormat("Fully static, no backend needed"))
	}

	return nil
}
