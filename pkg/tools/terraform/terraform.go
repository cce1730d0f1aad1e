// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package terraform

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"

	"github.com/blang/semver/v4"
	"github.com/tensora/tcinfra/internal/tracing"
	"github.com/tensora/tcinfra/pkg/exec"
	"github.com/tensora/tcinfra/pkg/tools"
	"github.com/tidwall/gjson"
)

type TerraformCli interface {
	tools.ExternalTool
	// SetEnv sets additional environment variables passed to every terraform invocation.
	SetEnv(envVars []string)
	// SetSensitive registers values (e.g. secrets inside -var flags) that are redacted from logs.
	SetSensitive(values []string)
	// SetProgress streams init, plan, apply and destroy to w instead of the console.
	SetProgress(w io.Writer)
	Validate(ctx context.Context, modulePath string) (string, error)
	Init(ctx context.Context, modulePath string, additionalArgs ...string) (string, error)
	Plan(ctx context.Context, modulePath string, planFilePath string, additionalArgs ...string) (string, error)
	Apply(ctx context.Context, modulePath string, additionalArgs ...string) (string, error)
	Output(ctx context.Context, modulePath string, additionalArgs ...string) (string, error)
	Destroy(ctx context.Context, modulePath string, additionalArgs ...string) (string, error)
}

type terraformCli struct {
	commandRunner exec.CommandRunner
	env           []string
	sensitive     []string
	progress      io.Writer
}

func NewTerraformCli(commandRunner exec.CommandRunner) TerraformCli {
	return &terraformCli{
		commandRunner: commandRunner,
	}
}

func (cli *terraformCli) Name() string {
	return "Terraform CLI"
}

func (cli *terraformCli) InstallUrl() string {
	return "https://developer.hashicorp.com/terraform/install"
}

func (cli *terraformCli) versionInfo() tools.VersionInfo {
	return tools.VersionInfo{
		MinimumVersion: semver.Version{
			Major: 1,
			Minor: 1,
			Patch: 7},
		UpdateCommand: "Download newer version from https://www.terraform.io/downloads",
	}
}

func (cli *terraformCli) SetEnv(env []string) {
	cli.env = env
}

func (cli *terraformCli) SetSensitive(values []string) {
	cli.sensitive = values
}

func (cli *terraformCli) SetProgress(w io.Writer) {
	cli.progress = w
}

func (cli *terraformCli) CheckInstalled(ctx context.Context) error {
	if err := tools.ToolInPath("terraform"); err != nil {
		return err
	}

	tfVer, err := cli.unmarshalCliVersion(ctx, "terraform_version")
	if err != nil {
		return fmt.Errorf("checking %s version: %w", cli.Name(), err)
	}
	log.Printf("terraform version: %s", tfVer)

	tfSemver, err := semver.Parse(tfVer)
	if err != nil {
		return fmt.Errorf("converting to semver version fails: %w", err)
	}
	updateDetail := cli.versionInfo()
	if tfSemver.LT(updateDetail.MinimumVersion) {
		return &tools.ErrSemver{ToolName: cli.Name(), VersionInfo: updateDetail}
	}
	return nil
}

// newRunArgs passes the trace of ctx on to terraform next to the configured variables.
func (cli *terraformCli) newRunArgs(ctx context.Context, args ...string) exec.RunArgs {
	return exec.NewRunArgs("terraform", args...).
		WithEnv(append(slices.Clone(cli.env), tracing.Environ(ctx)...)).
		WithSensitiveData(cli.sensitive...)
}

func (cli *terraformCli) runCommand(ctx context.Context, args ...string) (exec.RunResult, error) {
	return cli.commandRunner.Run(ctx, cli.newRunArgs(ctx, args...))
}

// runInteractive attaches terraform to the console, or streams it to the progress writer when one is set.
func (cli *terraformCli) runInteractive(ctx context.Context, args ...string) (exec.RunResult, error) {
	runArgs := cli.newRunArgs(ctx, args...)
	if cli.progress != nil {
		runArgs = runArgs.WithStdOut(cli.progress).WithStdErr(cli.progress)
	} else {
		runArgs = runArgs.WithInteractive(true)
	}

	return cli.commandRunner.Run(ctx, runArgs)
}

func (cli *terraformCli) unmarshalCliVersion(ctx context.Context, component string) (string, error) {
	res, err := cli.runCommand(ctx, "version", "-json")
	if err != nil {
		return "", err
	}

	version := gjson.Get(res.Stdout, component)
	if version.Type != gjson.String {
		return "", fmt.Errorf("reading %s component '%s' version failed", cli.Name(), component)
	}
	return version.String(), nil
}

func (cli *terraformCli) Validate(ctx context.Context, modulePath string) (string, error) {
	args := []string{fmt.Sprintf("-chdir=%s", modulePath), "validate"}

	cmdRes, err := cli.runCommand(ctx, args...)
	if err != nil {
		return "", fmt.Errorf(
			"failed running terraform validate: %s (%w)",
			cmdRes.Stderr,
			err,
		)
	}
	return cmdRes.Stdout, nil
}

func (cli *terraformCli) Init(ctx context.Context, modulePath string, additionalArgs ...string) (string, error) {
	args := []string{
		fmt.Sprintf("-chdir=%s", modulePath),
		"init",
		"-upgrade",
		"-input=false",
	}

	args = append(args, additionalArgs...)
	cmdRes, err := cli.runInteractive(ctx, args...)
	if err != nil {
		return "", fmt.Errorf(
			"failed running terraform init: %s (%w)",
			cmdRes.Stderr,
			err,
		)
	}
	return cmdRes.Stdout, nil
}

func (cli *terraformCli) Plan(
	ctx context.Context,
	modulePath string,
	planFilePath string,
	additionalArgs ...string,
) (string, error) {
	args := []string{
		fmt.Sprintf("-chdir=%s", modulePath),
		"plan",
		fmt.Sprintf("-out=%s", planFilePath),
		"-input=false",
	}

	args = append(args, additionalArgs...)
	cmdRes, err := cli.runInteractive(ctx, args...)
	if err != nil {
		return "", fmt.Errorf(
			"failed running terraform plan: %s (%w)",
			cmdRes.Stderr,
			err,
		)
	}
	return cmdRes.Stdout, nil
}

func (cli *terraformCli) Apply(ctx context.Context, modulePath string, additionalArgs ...string) (string, error) {
	args := []string{
		fmt.Sprintf("-chdir=%s", modulePath),
		"apply",
		"-input=false",
	}

	args = append(args, additionalArgs...)
	cmdRes, err := cli.runInteractive(ctx, args...)
	if err != nil {
		return "", fmt.Errorf(
			"failed running terraform apply: %s (%w)",
			cmdRes.Stderr,
			err,
		)
	}
	return cmdRes.Stdout, nil
}

func (cli *terraformCli) Output(ctx context.Context, modulePath string, additionalArgs ...string) (string, error) {
	args := []string{
		fmt.Sprintf("-chdir=%s", modulePath), "output", "-json"}

	args = append(args, additionalArgs...)
	cmdRes, err := cli.runCommand(ctx, args...)
	if err != nil {
		return "", fmt.Errorf(
			"failed running terraform output: %s (%w)",
			cmdRes.Stderr,
			err,
		)
	}
	return cmdRes.Stdout, nil
}

func (cli *terraformCli) Destroy(ctx context.Context, modulePath string, additionalArgs ...string) (string, error) {
	args := []string{
		fmt.Sprintf("-chdir=%s", modulePath),
		"destroy",
		"-input=false",
	}

	args = append(args, additionalArgs...)
	cmdRes, err := cli.runInteractive(ctx, args...)
	if err != nil {
		return "", fmt.Errorf(
			"failed running terraform destroy: %s (%w)",
			cmdRes.Stderr,
			err,
		)
	}
	return cmdRes.Stdout, nil
}
