// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/pipeline"
	"github.com/tensora/tcinfra/pkg/tools"
)

type deployFlags struct {
	tag    string
	verify bool
}

func (f *deployFlags) Bind(local *pflag.FlagSet) {
	local.StringVar(&f.tag, "tag", "",
		"The image tag. Defaults to the short commit from GITHUB_SHA, otherwise a UTC timestamp.")
	local.BoolVar(&f.verify, "verify", false, "Checks the health endpoint after the restart.")
}

func newProvisionCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Apply the declared Azure resources with Terraform.",
		Args:  cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return newPipelineAction(c, pipeline.ProvisionSteps(), pipeline.Options{}), nil
	})
}

func newDeployCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	flags := &deployFlags{}
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Build and push the image, then restart the web app.",
		Long: heredoc.Doc(`
			Build and push the image, then restart the web app.

			The image is pushed with the run tag and with 'latest'. The restart waits for restartDelay first.
		`),
		Args: cobra.NoArgs,
	}
	flags.Bind(cmd.Flags())

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return newPipelineAction(c, pipeline.DeploySteps(flags.verify), pipeline.Options{Tag: flags.tag}), nil
	})
}

func newUpCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	flags := &deployFlags{}
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Provision and deploy in one run. This is what CI runs on every push.",
		Args:  cobra.NoArgs,
	}
	flags.Bind(cmd.Flags())

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return newPipelineAction(c, pipeline.UpSteps(flags.verify), pipeline.Options{Tag: flags.tag}), nil
	})
}

type pipelineAction struct {
	container *container
	steps     []pipeline.StepName
	options   pipeline.Options
}

// newPipelineAction runs steps. Under --no-prompt a missing environment file is not an error, so a fresh CI
// checkout deploys from the variables of the job.
func newPipelineAction(c *container, steps []pipeline.StepName, options pipeline.Options) *pipelineAction {
	c.processEnvironment = true
	return &pipelineAction{container: c, steps: steps, options: options}
}

func (a *pipelineAction) Run(ctx context.Context) (*actions.ActionResult, error) {
	runner, err := a.container.PipelineRunner(ctx, a.options)
	if err != nil {
		return nil, err
	}

	if err := tools.EnsureInstalled(ctx, a.requiredTools()...); err != nil {
		return nil, err
	}

	result, err := runner.Run(ctx, a.steps)
	if err != nil {
		return nil, err
	}

	if output.GetFormatter(ctx).Kind() != output.NoneFormat {
		return nil, output.GetFormatter(ctx).Format(result, output.GetWriter(ctx))
	}

	message := &actions.ResultMessage{Header: fmt.Sprintf("Run %s finished.", result.RunId)}
	if result.WebAppUrl != "" {
		message.FollowUp = fmt.Sprintf("Web app: %s", output.WithLinkFormat(result.WebAppUrl))
	}
	if result.Image != "" {
		message.FollowUp += fmt.Sprintf("\nImage: %s", result.Image)
	}

	return &actions.ActionResult{Message: message}, nil
}

func (a *pipelineAction) requiredTools() []tools.ExternalTool {
	c := a.container
	var required []tools.ExternalTool
	for _, step := range a.steps {
		switch step {
		case pipeline.StepProvision:
			required = append(required, newTerraformTool(c))
		case pipeline.StepBuild:
			required = append(required, newDockerTool(c))
		}
	}
	return required
}
