// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package cmd wires the frameworks adapter behind a thin CLI. All decisions
// live in internal/ and pkg/; commands only parse flags and print results.
package cmd

import (
	"io"
	"log"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	debug bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "frameworks",
		Short:         "Adapt a web framework's build output for hosting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !flags.debug {
				log.SetOutput(io.Discard)
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newBuildCmd(flags))
	rootCmd.AddCommand(newEmulateCmd(flags))

	return rootCmd
}
