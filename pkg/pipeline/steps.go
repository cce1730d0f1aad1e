// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tensora/tcinfra/pkg/infra/provisioning"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/osutil"
	"github.com/tensora/tcinfra/pkg/tools/docker"
)

// LatestTag is pushed alongside the run tag.
const LatestTag = "latest"

func (r *Runner) provision(ctx context.Context) error {
	_, err := provisioning.Provision(ctx, r.provider, r.env)
	return err
}

func (r *Runner) build(ctx context.Context) error {
	loginServer, err := r.registryLoginServer(ctx)
	if err != nil {
		return err
	}

	dockerfile, err := r.dockerfile()
	if err != nil {
		return err
	}

	r.image = ImageReference(loginServer, r.project.Image, r.imageTag())

	buildArgs := make([]string, 0, len(r.project.Docker.BuildArgs))
	for key, value := range r.project.Docker.BuildArgs {
		buildArgs = append(buildArgs, fmt.Sprintf("%s=%s", key, value))
	}
	sort.Strings(buildArgs)

	imageId, err := r.docker.Build(ctx, docker.BuildOptions{
		Cwd:            r.project.Path,
		DockerfilePath: dockerfile,
		Platform:       r.project.Docker.Platform,
		BuildContext:   r.project.DockerContext(),
		Tag:            r.image,
		BuildArgs:      buildArgs,
		Progress:       r.writer,
	})
	if err != nil {
		return err
	}

	log.Printf("built image %s (%s)", r.image, imageId)
	return nil
}

func (r *Runner) push(ctx context.Context) error {
	if r.image == "" {
		return errors.New("no image was built in this run")
	}

	credentials, err := r.azure.GetRegistryCredentials(
		ctx, r.env.GetSubscriptionId(), r.env.GetResourceGroup(), r.names.Registry)
	if err != nil {
		return err
	}

	if err := r.docker.Login(ctx, credentials.LoginServer, credentials.Username, credentials.Password); err != nil {
		return err
	}

	if err := r.docker.Push(ctx, r.project.Path, r.image); err != nil {
		return err
	}

	repository, _ := docker.SplitDockerImage(r.image)
	latest := repository + ":" + LatestTag
	if err := r.docker.Tag(ctx, r.project.Path, r.image, latest); err != nil {
		return err
	}

	return r.docker.Push(ctx, r.project.Path, latest)
}

// wait is a fixed delay that gives the registry time before the web app pulls the new image.
func (r *Runner) wait(ctx context.Context) error {
	delay := r.project.RestartWait()
	if delay <= 0 {
		return nil
	}

	timer := r.clock.Timer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) restart(ctx context.Context) error {
	return r.azure.RestartWebApp(ctx, r.env.GetSubscriptionId(), r.env.GetResourceGroup(), r.webAppName())
}

func (r *Runner) health(ctx context.Context) error {
	hostName := r.env.Output(stack.OutputWebAppHostname)
	if hostName == "" {
		var err error
		hostName, err = r.azure.GetWebAppHostName(
			ctx, r.env.GetSubscriptionId(), r.env.GetResourceGroup(), r.webAppName())
		if err != nil {
			return err
		}
	}

	url := "https://" + hostName + r.project.HealthPath
	return r.checker.Wait(ctx, url, time.Duration(r.project.HealthTimeout))
}

func (r *Runner) imageTag() string {
	if r.tag == "" {
		r.tag = ImageTag(r.options.Tag, os.Getenv, r.clock)
	}
	return r.tag
}

func (r *Runner) webAppName() string {
	if name := r.env.Output(stack.OutputWebAppName); name != "" {
		return name
	}
	return r.names.WebApp
}

// registryLoginServer prefers the provisioning output and falls back to the management API.
func (r *Runner) registryLoginServer(ctx context.Context) (string, error) {
	if r.loginServer != "" {
		return r.loginServer, nil
	}

	loginServer := r.env.Output(stack.OutputRegistryLoginServer)
	if loginServer == "" {
		var err error
		loginServer, err = r.azure.GetRegistryLoginServer(
			ctx, r.env.GetSubscriptionId(), r.env.GetResourceGroup(), r.names.Registry)
		if err != nil {
			return "", err
		}
	}

	r.loginServer = strings.TrimSuffix(loginServer, "/")
	return r.loginServer, nil
}

// dockerfile returns the project Dockerfile, generating one from the container definition when it does not exist.
func (r *Runner) dockerfile() (string, error) {
	path := r.project.DockerfilePath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	contents, err := r.project.Container.Dockerfile()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.options.WorkDir, osutil.PermissionDirectory); err != nil {
		return "", err
	}

	generated := filepath.Join(r.options.WorkDir, "Dockerfile")
	log.Printf("'%s' not found, building with generated '%s'", path, generated)
	if err := os.WriteFile(generated, contents, osutil.PermissionFile); err != nil {
		return "", fmt.Errorf("writing Dockerfile: %w", err)
	}

	return generated, nil
}
