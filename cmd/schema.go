// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/project"
)

func newSchemaCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of tcinfra.yaml.",
		Long: heredoc.Doc(`
			Print the JSON schema of tcinfra.yaml.

			Every command validates tcinfra.yaml against this schema. Save it next to the project file and point
			your editor at it to get completion:
			  tcinfra schema > tcinfra.schema.json
		`),
		Args: cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			formatter := output.GetFormatter(ctx)
			if formatter.Kind() == output.NoneFormat {
				formatter = &output.JsonFormatter{}
			}

			return nil, formatter.Format(project.Schema(), output.GetWriter(ctx))
		}), nil
	})
}
