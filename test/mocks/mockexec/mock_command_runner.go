// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package mockexec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tensora/tcinfra/pkg/exec"
)

type CommandWhenPredicate func(args exec.RunArgs, command string) bool
type RespondFn func(args exec.RunArgs) (exec.RunResult, error)

// MockCommandRunner matches commands against registered expressions and
// records every invocation in order.
type MockCommandRunner struct {
	mu          sync.Mutex
	expressions []*CommandExpression
	invocations []exec.RunArgs
}

func NewMockCommandRunner() *MockCommandRunner {
	return &MockCommandRunner{}
}

func (m *MockCommandRunner) Run(ctx context.Context, args exec.RunArgs) (exec.RunResult, error) {
	m.mu.Lock()
	m.invocations = append(m.invocations, args)
	expressions := m.expressions
	m.mu.Unlock()

	command := strings.TrimSpace(fmt.Sprintf("%s %s", args.Cmd, strings.Join(args.Args, " ")))

	var match *CommandExpression
	// last registration wins so tests can override defaults
	for i := len(expressions) - 1; i >= 0; i-- {
		if expressions[i].predicateFn(args, command) {
			match = expressions[i]
			break
		}
	}

	if match == nil {
		panic(fmt.Sprintf("No mock found for command: '%s'", command))
	}

	if match.responseFn != nil {
		return match.responseFn(args)
	}

	return match.Response, match.Error
}

// When registers a new expression that is matched by the predicate.
func (m *MockCommandRunner) When(predicate CommandWhenPredicate) *CommandExpression {
	expr := &CommandExpression{
		runner:      m,
		predicateFn: predicate,
	}

	m.mu.Lock()
	m.expressions = append(m.expressions, expr)
	m.mu.Unlock()

	return expr
}

// Invocations returns the commands executed so far.
func (m *MockCommandRunner) Invocations() []exec.RunArgs {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]exec.RunArgs{}, m.invocations...)
}

// Commands returns the executed commands formatted as "cmd arg1 arg2".
func (m *MockCommandRunner) Commands() []string {
	var commands []string
	for _, args := range m.Invocations() {
		commands = append(commands, strings.TrimSpace(args.Cmd+" "+strings.Join(args.Args, " ")))
	}
	return commands
}

type CommandExpression struct {
	Response    exec.RunResult
	Error       error
	runner      *MockCommandRunner
	predicateFn CommandWhenPredicate
	responseFn  RespondFn
}

func (e *CommandExpression) Respond(response exec.RunResult) *MockCommandRunner {
	e.Response = response
	return e.runner
}

func (e *CommandExpression) RespondFn(responseFn RespondFn) *MockCommandRunner {
	e.responseFn = responseFn
	return e.runner
}

func (e *CommandExpression) SetError(err error) *MockCommandRunner {
	e.Error = err
	return e.runner
}
