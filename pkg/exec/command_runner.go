// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"strings"
)

// CommandRunner exposes the contract for executing console/shell commands for the specified runArgs
type CommandRunner interface {
	Run(ctx context.Context, args RunArgs) (RunResult, error)
}

type RunnerOptions struct {
	// Stdin is the input stream. If nil, os.Stdin is used.
	Stdin io.Reader
	// Stdout is the output stream. If nil, os.Stdout is used.
	Stdout io.Writer
	// Stderr is the error stream. If nil, os.Stderr is used.
	Stderr io.Writer
	// Whether debug logging is enabled. False by default.
	DebugLogging bool
}

// Creates a new default instance of the CommandRunner.
// Passing nil will use the default values for RunnerOptions.
func NewCommandRunner(opt *RunnerOptions) CommandRunner {
	if opt == nil {
		opt = &RunnerOptions{}
	}

	runner := &commandRunner{
		stdin:        opt.Stdin,
		stdout:       opt.Stdout,
		stderr:       opt.Stderr,
		debugLogging: opt.DebugLogging,
	}

	if runner.stdin == nil {
		runner.stdin = os.Stdin
	}

	if runner.stdout == nil {
		runner.stdout = os.Stdout
	}

	if runner.stderr == nil {
		runner.stderr = os.Stderr
	}

	return runner
}

// commandRunner executes actual commands on the underlying console/shell
type commandRunner struct {
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer
	debugLogging bool
}

// Run runs the command specified in 'args'.
//
//   - If interactive is true, standard output/error is not captured in the returned result.
//     Instead, it is redirected to the runner's output/error.
//   - If the underlying command exits unsuccessfully, *ExitError is returned. Other possible errors would likely be I/O
//     errors or context cancellation.
func (r *commandRunner) Run(ctx context.Context, args RunArgs) (RunResult, error) {
	cmd := exec.CommandContext(ctx, args.Cmd, args.Args...)
	cmd.Dir = args.Cwd
	cmd.Env = appendEnv(args.Env)

	var stdout, stderr bytes.Buffer

	if args.Interactive {
		cmd.Stdin = r.stdin
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr
	} else {
		cmd.Stdin = new(bytes.Buffer)
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if args.Stdout != nil {
			cmd.Stdout = io.MultiWriter(args.Stdout, &stdout)
		}

		if args.Stderr != nil {
			cmd.Stderr = io.MultiWriter(args.Stderr, &stderr)
		}
	}

	if args.StdIn != nil {
		cmd.Stdin = args.StdIn
	}

	logTitle := strings.Builder{}
	logBody := strings.Builder{}
	defer func() {
		logTitle.WriteString(logBody.String())
		log.Print(logTitle.String())
	}()

	logTitle.WriteString(fmt.Sprintf("Run exec: '%s %s' ",
		args.Cmd,
		RedactSensitiveData(strings.Join(RedactSensitiveArgs(args.Args, args.SensitiveData), " "))))

	if r.debugLogging && len(args.Env) > 0 {
		logBody.WriteString("Additional env:\n")
		for _, kv := range args.Env {
			name, _, _ := strings.Cut(kv, "=")
			logBody.WriteString(fmt.Sprintf("   %s=%s\n", name, cRedacted))
		}
	}

	err := cmd.Run()
	if cmd.ProcessState == nil {
		// the process never started
		return RunResult{ExitCode: -1}, err
	}

	result := RunResult{
		ExitCode: cmd.ProcessState.ExitCode(),
	}

	if !args.Interactive {
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()

		if r.debugLogging {
			logStdErr := strings.TrimSuffix(RedactSensitiveData(result.Stderr), "\n")
			if len(logStdErr) > 0 {
				logBody.WriteString(fmt.Sprintf("-------------stderr-------------\n%s\n", logStdErr))
			}
		}
	}

	logTitle.WriteString(fmt.Sprintf(", exit code: %d\n", result.ExitCode))

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = NewExitError(args.Cmd, exitErr.ExitCode(), result.Stdout, result.Stderr, !args.Interactive)
	}

	return result, err
}

func appendEnv(env []string) []string {
	if len(env) > 0 {
		return append(os.Environ(), env...)
	}

	return nil
}
