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
	Env  []string

	// Stdout will receive a copy of the text written to Stdout by the command.
	// NOTE: RunResult.Stdout will still contain stdout output.
	Stdout io.Writer

	// Stderr will receive a copy of the text written to Stderr by the command.
	// NOTE: RunResult.Stderr will still contain stderr output.
	Stderr io.Writer

	// When set will attach commands to std input/output
	Interactive bool

	// When set will call the command with the specified StdIn
	StdIn io.Reader

	// Values that are replaced with <redacted> when the command line is logged
	SensitiveData []string
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

// Updates whether or not this will be an interactive commands
// Interactive command sets stdin, stdout & stderr to the OS console/terminal
func (b RunArgs) WithInteractive(interactive bool) RunArgs {
	b.Interactive = interactive
	return b
}

// Updates the stdin reader that will be used while invoking the command
func (b RunArgs) WithStdIn(stdIn io.Reader) RunArgs {
	b.StdIn = stdIn
	return b
}

// Updates the writer that receives a copy of stdout
func (b RunArgs) WithStdOut(stdOut io.Writer) RunArgs {
	b.Stdout = stdOut
	return b
}

// Updates the writer that receives a copy of stderr
func (b RunArgs) WithStdErr(stdErr io.Writer) RunArgs {
	b.Stderr = stdErr
	return b
}

// Registers values that must never appear in logs
func (b RunArgs) WithSensitiveData(data ...string) RunArgs {
	b.SensitiveData = append(b.SensitiveData, data...)
	return b
}
