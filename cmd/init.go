// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/tensora/tcinfra/cmd/actions"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/environment/tccontext"
	"github.com/tensora/tcinfra/pkg/osutil"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/project"
)

type initFlags struct {
	name       string
	image      string
	branch     string
	dockerfile bool
}

func newInitCmd(global *internal.GlobalCommandOptions) *cobra.Command {
	flags := &initFlags{}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create tcinfra.yaml in the current directory.",
		Long: heredoc.Doc(`
			Create tcinfra.yaml in the current directory.

			With --dockerfile, a Dockerfile is rendered from the container section of the project file. Running
			init again with --dockerfile regenerates the Dockerfile of an existing project.
		`),
		Args: cobra.NoArgs,
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "The project name. Defaults to the directory name.")
	cmd.Flags().StringVar(&flags.image, "image", "", "The image repository inside the container registry.")
	cmd.Flags().StringVar(&flags.branch, "branch", "", "The branch whose pushes deploy.")
	cmd.Flags().BoolVar(&flags.dockerfile, "dockerfile", false, "Generates the Dockerfile.")

	return bindAction(cmd, global, func(ctx context.Context, c *container, args []string) (actions.Action, error) {
		return &initAction{flags: flags, global: global}, nil
	})
}

type initAction struct {
	flags  *initFlags
	global *internal.GlobalCommandOptions
}

func (a *initAction) Run(ctx context.Context) (*actions.ActionResult, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	projectPath := filepath.Join(wd, tccontext.ProjectFileName)
	projectConfig, err := project.Load(projectPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		name := a.flags.name
		if name == "" {
			name = filepath.Base(wd)
		}

		projectConfig, err = project.New(projectPath, project.Template{
			Name:   name,
			Image:  a.flags.image,
			Branch: a.flags.branch,
		})
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(output.GetWriter(ctx), "Created %s\n", output.WithHighLightFormat(projectPath))
	case err != nil:
		return nil, err
	case !a.flags.dockerfile:
		return nil, &internal.ErrorWithSuggestion{
			Err:        fmt.Errorf("'%s' already exists", projectPath),
			Suggestion: "Pass --dockerfile to regenerate the Dockerfile of the existing project.",
		}
	}

	if a.flags.dockerfile {
		contents, err := projectConfig.Container.Dockerfile()
		if err != nil {
			return nil, err
		}

		if err := os.WriteFile(projectConfig.DockerfilePath(), contents, osutil.PermissionFile); err != nil {
			return nil, fmt.Errorf("writing Dockerfile: %w", err)
		}
		fmt.Fprintf(output.GetWriter(ctx), "Wrote %s\n", output.WithHighLightFormat(projectConfig.DockerfilePath()))
	}

	if a.global.EnvironmentName != "" {
		manager := environment.NewManager(tccontext.Root(wd))
		if _, err := manager.Create(a.global.EnvironmentName); err != nil &&
			!errors.Is(err, environment.ErrEnvironmentExists) {
			return nil, err
		}

		if err := manager.SetDefault(a.global.EnvironmentName); err != nil {
			return nil, err
		}
	}

	return &actions.ActionResult{
		Message: &actions.ResultMessage{
			Header:   fmt.Sprintf("Initialized project '%s'.", projectConfig.Name),
			FollowUp: fmt.Sprintf("Next: %s", output.WithHighLightFormat("tcinfra env new <name>")),
		},
	}, nil
}
