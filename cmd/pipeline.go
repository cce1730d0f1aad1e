// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/workflow"
)

type pipelineConfigFlags struct {
	branch           string
	goVersion        string
	terraformVersion string
	verify           bool
}

func newPipelineCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Manage the CI pipeline.",
	}

	flags := &pipelineConfigFlags{}
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Write the GitHub Actions workflow that runs `tcinfra up` on every push.",
		Long: heredoc.Doc(`
			Write the GitHub Actions workflow that runs 'tcinfra up' on every push to the tracked branch.

			One workflow is written per environment. The workflow reads the service principal from the
			repository secrets AZURE_CLIENT_ID, AZURE_CLIENT_SECRET, AZURE_SUBSCRIPTION_ID and AZURE_TENANT_ID.
			The API keys come from repository secrets and every other setting from repository variables of
			the same name, so the job does not need a committed environment file.
		`),
		Args: cobra.NoArgs,
	}
	configCmd.Flags().StringVar(&flags.branch, "branch", "", "The branch to deploy. Defaults to branch of tcinfra.yaml.")
	configCmd.Flags().StringVar(&flags.goVersion, "go-version", workflow.DefaultGoVersion, "The Go version of the job.")
	configCmd.Flags().StringVar(
		&flags.terraformVersion, "terraform-version", workflow.DefaultTerraformVersion, "The Terraform version of the job.")
	configCmd.Flags().BoolVar(&flags.verify, "verify", false, "Checks the health endpoint after each deployment.")

	pipelineCmd.AddCommand(bindAction(configCmd, global,
		func(ctx context.Context, c *container, args []string) (actions.Action, error) {
			return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
				root, projectConfig, err := c.Project()
				if err != nil {
					return nil, err
				}

				env, err := c.Environment()
				if err != nil {
					return nil, err
				}

				branch := flags.branch
				if branch == "" {
					branch = projectConfig.Branch
				}

				path, err := workflow.Write(root.Directory(), workflow.Config{
					Environment:      env.Name(),
					Branch:           branch,
					GoVersion:        flags.goVersion,
					TerraformVersion: flags.terraformVersion,
					Verify:           flags.verify,
				})
				if err != nil {
					return nil, err
				}

				return &actions.ActionResult{
					Message: &actions.ResultMessage{
						Header:   fmt.Sprintf("Wrote %s", output.WithHighLightFormat(path)),
						FollowUp: pipelineFollowUp(branch),
					},
				}, nil
			}), nil
		}))

	return pipelineCmd
}

// pipelineFollowUp lists the repository secrets and variables the workflow reads.
func pipelineFollowUp(branch string) string {
	var secrets, variables []string
	for _, input := range workflow.Inputs() {
		name := output.WithBackticks(input.Name)
		if !input.Required {
			name += " (optional)"
		}

		if input.Secret {
			secrets = append(secrets, name)
		} else {
			variables = append(variables, name)
		}
	}

	return fmt.Sprintf("Before pushing to '%s', add the repository secrets:\n  %s\nand the repository variables:\n  %s",
		branch, strings.Join(secrets, "\n  "), strings.Join(variables, "\n  "))
}
