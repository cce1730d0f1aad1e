// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/infra/provisioning"
	"github.com/tensora/tcinfra/pkg/tools"
)

func newDownCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Destroy the resources of the environment with Terraform.",
		Long: heredoc.Doc(`
			Destroy the resources of the environment with Terraform.

			Terraform asks for confirmation unless --force or --no-prompt is given. Legacy resources that are only
			read through data sources are never touched.
		`),
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&force, "force", false, "Does not ask for confirmation.")

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			env, err := c.Environment()
			if err != nil {
				return nil, err
			}

			declared, err := c.Stack()
			if err != nil {
				return nil, err
			}

			provider, err := c.TerraformProvider(ctx, declared)
			if err != nil {
				return nil, err
			}

			if err := tools.EnsureInstalled(ctx, provider.RequiredExternalTools()...); err != nil {
				return nil, err
			}

			if err := provider.Generate(ctx); err != nil {
				return nil, err
			}

			if err := provider.Init(ctx); err != nil {
				return nil, err
			}

			err = provider.Destroy(ctx, provisioning.DestroyOptions{AutoApprove: force || global.NoPrompt})
			if err != nil {
				return nil, err
			}

			return &actions.ActionResult{
				Message: &actions.ResultMessage{
					Header: fmt.Sprintf("Resources of environment '%s' destroyed.", env.Name()),
				},
			}, nil
		}), nil
	})
}
