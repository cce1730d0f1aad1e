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
	"github.com/tensora/tcinfra/pkg/output"
)

func newConfigCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the user configuration.",
		Long: heredoc.Docf(`
			Manage the user configuration.

			The configuration is stored in %s/config.json. Set TCINFRA_CONFIG_DIR to use another directory.

			Well known keys:
			  %s     default location of new environments
			  %s default subscription of new environments
		`, "~/.tcinfra", config.DefaultLocationPath, config.DefaultSubscriptionPath),
	}

	configCmd.AddCommand(
		newConfigShowCmd(global),
		newConfigGetCmd(global),
		newConfigSetCmd(global),
		newConfigUnsetCmd(global),
	)

	return configCmd
}

func newConfigShowCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the user configuration.",
		Args:  cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			cfg, err := config.NewUserConfigManager().Load()
			if err != nil {
				return nil, err
			}

			ctx = withDefaultFormatter(ctx, output.JsonFormat)
			return nil, output.GetFormatter(ctx).Format(cfg.Raw(), output.GetWriter(ctx))
		}), nil
	})
}

func newConfigGetCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print a value of the user configuration.",
		Args:  cobra.ExactArgs(1),
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			cfg, err := config.NewUserConfigManager().Load()
			if err != nil {
				return nil, err
			}

			value, has := cfg.Get(args[0])
			if !has {
				return nil, fmt.Errorf("no value stored at path '%s'", args[0])
			}

			ctx = withDefaultFormatter(ctx, output.JsonFormat)
			return nil, output.GetFormatter(ctx).Format(value, output.GetWriter(ctx))
		}), nil
	})
}

func newConfigSetCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Store a value in the user configuration.",
		Args:  cobra.ExactArgs(2),
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			manager := config.NewUserConfigManager()
			cfg, err := manager.Load()
			if err != nil {
				return nil, err
			}

			if err := cfg.Set(args[0], args[1]); err != nil {
				return nil, err
			}

			return nil, manager.Save(cfg)
		}), nil
	})
}

func newConfigUnsetCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unset <path>",
		Short: "Remove a value from the user configuration.",
		Args:  cobra.ExactArgs(1),
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			manager := config.NewUserConfigManager()
			cfg, err := manager.Load()
			if err != nil {
				return nil, err
			}

			if err := cfg.Unset(args[0]); err != nil {
				return nil, err
			}

			return nil, manager.Save(cfg)
		}), nil
	})
}
