// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package exec

import (
	"io"
)

// RunArgs exposes the command, arguments and other options when running console/shell commands
type RunArgs struct {
	Cmd  string
	Args []string
	Cwd  string

	// Env is the additional environment for the command, in "KEY=VALUE" form.
	// It is appended to the ambient process environment, never applied globally.
	Env []string

	// Stdout will receive a copy of the text written to Stdout by
	// the command.
	// NOTE: RunResult.Stdout will still contain stdout output.
	Stdout io.Writer

	// Stderr will receive a copy of the text written to Stderr by
	// the command.
	// NOTE: RunResult.Stderr will still contain stderr output.
	Stderr io.Writer

	// When set will call the command with the specified StdIn
	StdIn io.Reader

	// When set together with Stdout, the command's stdout is streamed to the
	// Stdout writer only and not retained in RunResult. This bounds peak
	// memory when consuming large command dumps incrementally.
	StreamStdout bool

	// When set, overrides the runner's debug logging setting for this command.
	DebugLogging *bool
}

// NewRunArgs creates a new instance with the specified cmd and args
func NewRunArgs(cmd string, args ...string) RunArgs {
	return RunArgs{
		Cmd:  cmd,
		Args: args,
	}
}

// Appends additional command params
func (b RunArgs) AppendParams(params ...string) RunArgs {
	b.Args = append(b.Args, params...)
	return b
}

// Updates the current working directory (cwd) for the command
func (b RunArgs) WithCwd(cwd string) RunArgs {
	b.Cwd = cwd
	return b
}

// Updates the environment variables to used for the command
func (b RunArgs) WithEnv(env []string) RunArgs {
	b.Env = env
	return b
}

// WithStdOut forwards a copy of the command's stdout to the given writer
func (b RunArgs) WithStdOut(stdout io.Writer) RunArgs {
	b.Stdout = stdout
	return b
}

// WithStdIn sets the command's standard input
func (b RunArgs) WithStdIn(stdin io.Reader) RunArgs {
	b.StdIn = stdin
	return b
}
