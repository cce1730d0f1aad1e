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
	"github.com/tensora/tcinfra/pkg/config"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/infra/provisioning"
	"github.com/tensora/tcinfra/pkg/output"
)

func newEnvCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Manage environments.",
	}

	envCmd.AddCommand(
		newEnvNewCmd(global),
		newEnvListCmd(global),
		newEnvSelectCmd(global),
		newEnvSetCmd(global),
		newEnvGetValuesCmd(global),
		newEnvRefreshCmd(global),
	)

	return envCmd
}

type envNewFlags struct {
	customer        string
	environmentType string
	subscription    string
	tenant          string
	location        string
	resourceGroup   string
}

func newEnvNewCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	flags := &envNewFlags{}
	cmd := &cobra.Command{
		Use:   "new <environment>",
		Short: "Create a new environment and make it the default.",
		Long: heredoc.Doc(`
			Create a new environment and make it the default.

			The subscription and location default to defaults.subscription and defaults.location of the user
			configuration (see tcinfra config).
		`),
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&flags.customer, "customer", "", "The customer token used in resource names.")
	cmd.Flags().StringVar(&flags.environmentType, "environment-type", "",
		"The environment token used in resource names and SKU selection. Defaults to the environment name.")
	cmd.Flags().StringVar(&flags.subscription, "subscription", "", "The Azure subscription id.")
	cmd.Flags().StringVar(&flags.tenant, "tenant", "", "The Azure tenant id.")
	cmd.Flags().StringVarP(&flags.location, "location", "l", "", "The Azure location.")
	cmd.Flags().StringVar(&flags.resourceGroup, "resource-group", "", "The existing resource group to deploy into.")

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			manager, err := c.EnvManager()
			if err != nil {
				return nil, err
			}

			userConfig, err := config.NewUserConfigManager().Load()
			if err != nil {
				return nil, err
			}

			if flags.subscription == "" {
				flags.subscription, _ = userConfig.GetString(config.DefaultSubscriptionPath)
			}
			if flags.location == "" {
				flags.location, _ = userConfig.GetString(config.DefaultLocationPath)
			}

			env, err := manager.Create(args[0])
			if err != nil {
				return nil, err
			}

			values := map[string]string{
				environment.CustomerEnvVarName:       flags.customer,
				environment.EnvironmentEnvVarName:    flags.environmentType,
				environment.SubscriptionIdEnvVarName: flags.subscription,
				environment.TenantIdEnvVarName:       flags.tenant,
				environment.LocationEnvVarName:       flags.location,
				environment.ResourceGroupEnvVarName:  flags.resourceGroup,
			}
			for key, value := range values {
				if value != "" {
					env.DotenvSet(key, value)
				}
			}

			if err := manager.Save(env); err != nil {
				return nil, err
			}

			if err := manager.SetDefault(env.Name()); err != nil {
				return nil, err
			}

			return &actions.ActionResult{
				Message: &actions.ResultMessage{
					Header:   fmt.Sprintf("New environment '%s' created and set as default.", env.Name()),
					FollowUp: fmt.Sprintf("Values are stored in %s", output.WithHighLightFormat(env.File)),
				},
			}, nil
		}), nil
	})
}

func newEnvListCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List environments.",
		Args:    cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			manager, err := c.EnvManager()
			if err != nil {
				return nil, err
			}

			envs, err := manager.List()
			if err != nil {
				return nil, err
			}

			return nil, printResult(ctx, envs, func() {
				writer := output.GetWriter(ctx)
				for _, env := range envs {
					marker := " "
					if env.IsDefault {
						marker = output.WithSuccessFormat("*")
					}
					fmt.Fprintf(writer, "%s %s\n", marker, env.Name)
				}
			})
		}), nil
	})
}

func newEnvSelectCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select <environment>",
		Short: "Set the default environment.",
		Args:  cobra.ExactArgs(1),
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			manager, err := c.EnvManager()
			if err != nil {
				return nil, err
			}

			if _, err := manager.Get(args[0]); err != nil {
				return nil, err
			}

			return nil, manager.SetDefault(args[0])
		}), nil
	})
}

func newEnvSetCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the environment.",
		Long: heredoc.Doc(`
			Set a value in the environment.

			Values of the form akvs://<vault>/<secret> are read from Azure Key Vault when the stack variables are
			mapped, so secrets never have to be stored in the .env file.
		`),
		Args: cobra.ExactArgs(2),
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			env, err := c.Environment()
			if err != nil {
				return nil, err
			}

			env.DotenvSet(args[0], args[1])
			return nil, env.Save()
		}), nil
	})
}

func newEnvGetValuesCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-values",
		Short: "Print the values of the environment.",
		Args:  cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			env, err := c.Environment()
			if err != nil {
				return nil, err
			}

			ctx = withDefaultFormatter(ctx, output.EnvVarsFormat)
			return nil, output.GetFormatter(ctx).Format(env.Values, output.GetWriter(ctx))
		}), nil
	})
}

func newEnvRefreshCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Read the outputs of the last apply into the environment.",
		Args:  cobra.NoArgs,
	}

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

			if err := provider.Generate(ctx); err != nil {
				return nil, err
			}

			if err := provider.Init(ctx); err != nil {
				return nil, err
			}

			outputs, err := provider.Outputs(ctx)
			if err != nil {
				return nil, err
			}

			if err := provisioning.UpdateEnvironment(env, outputs); err != nil {
				return nil, err
			}

			return &actions.ActionResult{
				Message: &actions.ResultMessage{
					Header: fmt.Sprintf("Environment '%s' refreshed with %d outputs.", env.Name(), len(outputs)),
				},
			}, nil
		}), nil
	})
}

// withDefaultFormatter replaces the 'none' formatter with format.
func withDefaultFormatter(ctx context.Context, format output.Format) context.Context {
	if output.GetFormatter(ctx).Kind() != output.NoneFormat {
		return ctx
	}

	formatter, err := output.NewFormatter(string(format))
	if err != nil {
		return ctx
	}

	return output.WithFormatter(ctx, formatter)
}
