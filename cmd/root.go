// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package cmd implements the tcinfra command line.
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/internal/tracing"
	"github.com/tensora/tcinfra/pkg/output"
)

// NewRootCmd creates the tcinfra command tree.
func NewRootCmd() *cobra.Command {
	global := &internal.GlobalCommandOptions{}

	rootCmd := &cobra.Command{
		Use:   "tcinfra",
		Short: "Provision and deploy the Tensora Count backend on Azure.",
		Long: heredoc.Doc(`
			tcinfra declares the Azure resources of the Tensora Count backend (Cosmos DB, container registry,
			App Service plan and web app), hands them to Terraform, then builds and pushes the backend image and
			restarts the web app.

			Typical flow:
			  tcinfra init
			  tcinfra env new dev --customer acme --subscription <id> --resource-group rg-acme-dev
			  tcinfra up
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if global.Cwd != "" {
				if err := os.Chdir(global.Cwd); err != nil {
					return fmt.Errorf("changing directory to '%s': %w", global.Cwd, err)
				}
			}
			return nil
		},
	}

	bindGlobalFlags(rootCmd.PersistentFlags(), global)

	rootCmd.AddCommand(
		newInitCmd(global),
		newEnvCmd(global),
		newConfigCmd(global),
		newProvisionCmd(global),
		newDeployCmd(global),
		newUpCmd(global),
		newDownCmd(global),
		newPipelineCmd(global),
		newVerifyCmd(global),
		newShowCmd(global),
		newSchemaCmd(global),
		newVersionCmd(global),
	)

	return rootCmd
}

func bindGlobalFlags(flags *pflag.FlagSet, global *internal.GlobalCommandOptions) {
	flags.StringVarP(&global.Cwd, "cwd", "C", "", "Sets the current working directory.")
	flags.StringVarP(&global.EnvironmentName, "environment", "e", "", "The name of the environment to use.")
	flags.BoolVar(&global.EnableDebugLogging, "debug", false, "Enables debugging and diagnostics logging.")
	flags.BoolVar(&global.NoPrompt, "no-prompt", false, "Accepts the default value instead of prompting.")
	flags.StringVarP(&global.OutputFormat, "output", "o", string(output.NoneFormat),
		fmt.Sprintf("The output format (%s).", formatNames()))
	flags.StringVar(&global.Query, "query", "", "A JMESPath query applied to the json output.")
	flags.StringVar(&global.TraceLogFile, "trace-log-file", "", "Writes a trace of the run to the given file.")
	_ = flags.MarkHidden("trace-log-file")
}

func formatNames() string {
	names := make([]string, 0, len(output.SupportedFormats))
	for _, format := range output.SupportedFormats {
		names = append(names, string(format))
	}
	return strings.Join(names, ", ")
}

// newCommandContainer creates the container of each command run. Tests replace it to inject mocks.
var newCommandContainer = newContainer

type actionBuilder func(ctx context.Context, c *container, args []string) (actions.Action, error)

// bindAction makes cmd run the action returned by build through the middleware chain.
func bindAction(cmd *cobra.Command, global *internal.GlobalCommandOptions, build actionBuilder) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		shutdown, err := tracing.Start(global.TraceLogFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Printf("flushing traces: %v", err)
			}
		}()

		formatter, err := output.NewFormatter(global.OutputFormat)
		if err != nil {
			return err
		}

		writer := cmd.OutOrStdout()
		ctx := output.WithWriter(output.WithFormatter(cmd.Context(), formatter), writer)

		// formatted results own stdout
		if formatter.Kind() != output.NoneFormat {
			ctx = output.WithProgressWriter(ctx, cmd.ErrOrStderr())
		}

		action, err := build(ctx, newCommandContainer(global), args)
		if err != nil {
			return err
		}

		options := &actions.ActionOptions{Name: strings.TrimPrefix(cmd.CommandPath(), cmd.Root().Name()+" ")}
		result, err := actions.RunWithMiddleware(ctx, options, action, actions.DefaultMiddleware(global))
		if err != nil {
			return err
		}

		if formatter.Kind() == output.NoneFormat {
			actions.ShowActionResults(writer, result)
		}
		return nil
	}

	return cmd
}

// printResult writes value with the selected formatter, or calls text when no format was requested.
func printResult(ctx context.Context, value any, text func()) error {
	formatter := output.GetFormatter(ctx)
	if formatter.Kind() == output.NoneFormat {
		text()
		return nil
	}

	return formatter.Format(value, output.GetWriter(ctx))
}
