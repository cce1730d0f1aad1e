// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/output"
)

type versionResult struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

func newVersionCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number of tcinfra.",
		Args:  cobra.NoArgs,
	}

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return actions.ActionFunc(func(ctx context.Context) (*actions.ActionResult, error) {
			info, err := internal.ParseVersion()
			if err != nil {
				return nil, err
			}

			result := versionResult{Version: info.Version.String(), Commit: info.Commit}
			return nil, printResult(ctx, result, func() {
				fmt.Fprintf(output.GetWriter(ctx), "tcinfra version %s\n", internal.Version)
			})
		}), nil
	})
}
