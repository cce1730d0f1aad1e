// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/output"
)

type showResult struct {
	Environment string            `json:"environment"`
	Names       stack.Names       `json:"names"`
	PlanSku     string            `json:"planSku"`
	Outputs     map[string]string `json:"outputs"`
}

func newShowCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resource names and the outputs of the last apply.",
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

			result := showResult{
				Environment: env.Name(),
				Names:       declared.Names,
				PlanSku:     stack.PlanSku(declared.Names.Environment),
				Outputs:     map[string]string{},
			}
			for _, out := range declared.Outputs {
				if value := env.Output(out.Name); value != "" {
					result.Outputs[out.Name] = value
				}
			}

			return nil, printResult(ctx, result, func() {
				writer := output.GetWriter(ctx)
				names := declared.Names
				fmt.Fprintf(writer, "Environment %s\n\n", output.WithHighLightFormat(env.Name()))
				rows := [][2]string{
					{"Cosmos DB account", names.CosmosAccount},
					{"Database", names.Database},
					{"Containers", names.Projects + ", " + names.Predictions},
					{"Container registry", names.Registry},
					{"App Service plan", fmt.Sprintf("%s (%s)", names.Plan, result.PlanSku)},
					{"Web app", names.WebApp},
				}
				for _, row := range rows {
					fmt.Fprintf(writer, "  %-20s %s\n", row[0], row[1])
				}

				if len(result.Outputs) == 0 {
					fmt.Fprintf(writer, "\n%s\n", output.WithGrayFormat("Not provisioned yet. Run `tcinfra provision`."))
					return
				}

				fmt.Fprintln(writer)
				for _, out := range declared.Outputs {
					if value, has := result.Outputs[out.Name]; has {
						fmt.Fprintf(writer, "  %-20s %s\n", out.Name, value)
					}
				}
			})
		}), nil
	})
}
