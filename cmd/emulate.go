// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tharvik/firebase-tools/internal/frameworks/nextjs"
	"github.com/tharvik/firebase-tools/pkg/output"
)

type emulateFlags struct {
	projectDir string
	target     string
	listen     string
	middleware bool
}

func newEmulateCmd(root *rootFlags) *cobra.Command {
	flags := &emulateFlags{}

	cmd := &cobra.Command{
		Use:   "emulate",
		Short: "Proxy local requests to the framework's development server",
		Long: heredoc.Doc(`
			Proxy local requests to the framework's development server.

			Forwards every request unmodified so the framework handler sees the
			exact URL the browser sent. Projects that use middleware are
			rejected, since this proxy cannot evaluate middleware itself.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmulate(flags)
		},
	}

	cmd.Flags().StringVar(&flags.projectDir, "project-dir", ".", "Framework project root")
	cmd.Flags().StringVar(&flags.target, "target", "http://localhost:3000", "Address of the framework dev server")
	cmd.Flags().StringVar(&flags.listen, "listen", "localhost:5000", "Address to serve on")
	cmd.Flags().BoolVar(&flags.middleware, "middleware", false, "Allow projects that use middleware")

	return cmd
}

func runEmulate(flags *emulateFlags) error {
	handler, err := nextjs.NewDevServerHandler(nextjs.DevServerOptions{
		Target:             flags.target,
		UsesMiddleware:     projectUsesMiddleware(flags.projectDir),
		SupportsMiddleware: flags.middleware,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(output.Writer, "Proxying %s on %s\n",
		output.WithHighLightFormat(flags.target), flags.listen)

	return http.ListenAndServe(flags.listen, handler)
}

// projectUsesMiddleware probes for a middleware source file at the project
// root or under src/, the two locations the framework accepts.
func projectUsesMiddleware(projectDir string) bool {
	for _, dir := range []string{projectDir, filepath.Join(projectDir, "src")} {
		for _, name := range []string{"middleware.ts", "middleware.js"} {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return true
			}
		}
	}
	return false
}
