// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tools

import (
	"context"
	"errors"
	"fmt"
	osexec "os/exec"

	"github.com/blang/semver/v4"
	"github.com/tensora/tcinfra/pkg/exec"
	"go.uber.org/multierr"
)

type ExternalTool interface {
	CheckInstalled(ctx context.Context) error
	InstallUrl() string
	Name() string
}

type ErrSemver struct {
	ToolName    string
	VersionInfo VersionInfo
}

type VersionInfo struct {
	MinimumVersion semver.Version
	UpdateCommand  string
}

func (err *ErrSemver) Error() string {
	return fmt.Sprintf("need at least version %s or later of %s installed. %s %s version",
		err.VersionInfo.MinimumVersion.String(), err.ToolName, err.VersionInfo.UpdateCommand, err.ToolName)
}

// ErrToolNotInstalled is returned by EnsureInstalled for tools missing from the PATH.
type ErrToolNotInstalled struct {
	ToolName   string
	InstallUrl string
	Err        error
}

func (err *ErrToolNotInstalled) Error() string {
	return fmt.Sprintf("%s is not installed, please see %s to install", err.ToolName, err.InstallUrl)
}

func (err *ErrToolNotInstalled) Unwrap() error {
	return err.Err
}

// ToolInPath checks to see if a program can be found on the PATH, as exec.LookPath
// does, but returns a wrapped osexec.ErrNotFound when it cannot be found.
func ToolInPath(name string) error {
	_, err := osexec.LookPath(name)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, osexec.ErrNotFound):
		return fmt.Errorf("'%s' %w", name, osexec.ErrNotFound)
	default:
		return fmt.Errorf("failed searching for `%s` on PATH: %w", name, err)
	}
}

func ExecuteCommand(ctx context.Context, commandRunner exec.CommandRunner, cmd string, args ...string) (string, error) {
	runResult, err := commandRunner.Run(ctx, exec.RunArgs{
		Cmd:  cmd,
		Args: args,
	})
	return runResult.Stdout, err
}

// EnsureInstalled checks every tool and reports all failures together.
func EnsureInstalled(ctx context.Context, externalTools ...ExternalTool) error {
	var errs error
	for _, tool := range externalTools {
		if err := tool.CheckInstalled(ctx); err != nil {
			if errors.Is(err, osexec.ErrNotFound) {
				err = &ErrToolNotInstalled{ToolName: tool.Name(), InstallUrl: tool.InstallUrl(), Err: err}
			}
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
