// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package mockexec provides a mock exec.CommandRunner with a When/Respond
// registration style for tests.
package mockexec

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tharvik/firebase-tools/pkg/exec"
)

type WhenPredicate func(args exec.RunArgs, command string) bool

type MockCommandRunner struct {
	expressions []*CommandExpression
}

func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{}
}

func (m *MockCommandRunner) Run(ctx context.Context, args exec.RunArgs) (exec.RunResult, error) {
	var match *CommandExpression

	command := strings.TrimSpace(fmt.Sprintf("%s %s", args.Cmd, strings.Join(args.Args, " ")))

	for _, expr := range m.expressions {
		if expr.predicateFn(args, command) {
			match = expr
			break
		}
	}

	if match == nil {
		panic(fmt.Sprintf("no mock found for command: '%s'", command))
	}

	result, err := match.respond(args)

	// Mirror the real runner's stdout forwarding so streaming consumers work.
	if args.Stdout != nil {
		_, _ = io.WriteString(args.Stdout, result.Stdout)
		if args.StreamStdout {
			result.Stdout = ""
		}
	}

	return result, err
}

func (m *MockCommandRunner) When(predicate WhenPredicate) *CommandExpression {
	expr := CommandExpression{
		runner:      m,
		predicateFn: predicate,
	}

	m.expressions = append(m.expressions, &expr)
	return &expr
}

type CommandExpression struct {
	runner      *MockCommandRunner
	predicateFn WhenPredicate
	respond     func(args exec.RunArgs) (exec.RunResult, error)
}

func (e *CommandExpression) Respond(response exec.RunResult) *MockCommandRunner {
	e.respond = func(exec.RunArgs) (exec.RunResult, error) {
		return response, nil
	}
	return e.runner
}

func (e *CommandExpression) RespondFn(fn func(args exec.RunArgs) (exec.RunResult, error)) *MockCommandRunner {
	e.respond = fn
	return e.runner
}

func (e *CommandExpression) SetError(err error) *MockCommandRunner {
	e.respond = func(exec.RunArgs) (exec.RunResult, error) {
		return exec.NewRunResult(-1, "", ""), err
	}
	return e.runner
}
