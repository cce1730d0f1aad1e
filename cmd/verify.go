// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/verify"
)

var errVerifyFailed = errors.New("one or more checks failed")

func newVerifyCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the declared stack against itself and against Azure.",
		Long: heredoc.Doc(`
			Check the declared stack against itself and against Azure.

			Checks: references between declarations, naming rules, resource group existence, the Cosmos DB account,
			the containers and their partition keys, the health check path of the web app and a live health check.
			Nothing is modified.
		`),
		Args: cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			verifier, err := c.Verifier(ctx)
			if err != nil {
				return nil, err
			}

			report := verifier.Run(ctx)
			err = printResult(ctx, report, func() { printReport(ctx, report) })
			if err != nil {
				return nil, err
			}

			if report.Failed() {
				return nil, errVerifyFailed
			}

			return &actions.ActionResult{
				Message: &actions.ResultMessage{Header: fmt.Sprintf("All checks of '%s' passed.", report.Environment)},
			}, nil
		}), nil
	})
}

func printReport(ctx context.Context, report *verify.Report) {
	writer := output.GetWriter(ctx)
	for _, check := range report.Checks {
		var status string
		switch check.Status {
		case verify.StatusPass:
			status = output.WithSuccessFormat("(✓) pass")
		case verify.StatusFail:
			status = output.WithErrorFormat("(x) fail")
		default:
			status = output.WithWarningFormat("(-) skip")
		}

		fmt.Fprintf(writer, "  %s  %-18s %s\n", status, check.Name, output.WithGrayFormat(check.Message))
	}
}
