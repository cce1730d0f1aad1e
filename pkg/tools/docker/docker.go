// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package docker

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/blang/semver/v4"
	"github.com/tensora/tcinfra/internal/tracing"
	"github.com/tensora/tcinfra/pkg/exec"
	"github.com/tensora/tcinfra/pkg/tools"
)

const DefaultPlatform string = "linux/amd64"

// BuildOptions are the inputs of a docker build.
type BuildOptions struct {
	// Working directory for the build command
	Cwd string
	// Path to the Dockerfile, relative to Cwd
	DockerfilePath string
	// Target platform, defaults to DefaultPlatform
	Platform string
	// Build context, relative to Cwd
	BuildContext string
	// Full image tag, e.g. registry.azurecr.io/count-api:1234
	Tag       string
	BuildArgs []string
	// Receives the output of docker build when not nil
	Progress io.Writer
}

type Docker interface {
	tools.ExternalTool
	Login(ctx context.Context, loginServer string, username string, password string) error
	Build(ctx context.Context, options BuildOptions) (string, error)
	Tag(ctx context.Context, cwd string, imageName string, tag string) error
	Push(ctx context.Context, cwd string, tag string) error
}

func NewDocker(commandRunner exec.CommandRunner) Docker {
	return &docker{
		commandRunner: commandRunner,
	}
}

type docker struct {
	commandRunner exec.CommandRunner
}

func (d *docker) Login(ctx context.Context, loginServer string, username string, password string) error {
	runArgs := exec.NewRunArgs(
		"docker", "login",
		"--username", username,
		"--password-stdin",
		loginServer,
	).WithStdIn(strings.NewReader(password)).WithEnv(tracing.Environ(ctx))

	_, err := d.commandRunner.Run(ctx, runArgs)
	if err != nil {
		return fmt.Errorf("failed logging into docker: %w", err)
	}

	return nil
}

// Runs a Docker build for a given Dockerfile. If the platform is not specified (empty) it defaults to amd64.
// If the build is successful, the function returns the image id of the built image.
func (d *docker) Build(ctx context.Context, options BuildOptions) (string, error) {
	platform := options.Platform
	if strings.TrimSpace(platform) == "" {
		platform = DefaultPlatform
	}

	buildContext := options.BuildContext
	if buildContext == "" {
		buildContext = "."
	}

	tmpFolder, err := os.MkdirTemp(os.TempDir(), "tcinfra-docker-build")
	if err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}
	defer func() {
		// fail to remove tmp files is not so bad as the OS will delete it
		// eventually
		_ = os.RemoveAll(tmpFolder)
	}()

	imgIdFile := filepath.Join(tmpFolder, "imgId")

	args := []string{
		"build",
		"-f", options.DockerfilePath,
		"--platform", platform,
	}

	if options.Tag != "" {
		args = append(args, "-t", options.Tag)
	}

	for _, arg := range options.BuildArgs {
		args = append(args, "--build-arg", arg)
	}

	args = append(args, "--iidfile", imgIdFile, buildContext)

	runArgs := exec.NewRunArgs("docker", args...).WithCwd(options.Cwd).WithEnv(tracing.Environ(ctx))
	if options.Progress != nil {
		// docker writes its progress to stderr on some platforms and stdout on others
		runArgs = runArgs.WithStdOut(options.Progress).WithStdErr(options.Progress)
	}

	_, err = d.commandRunner.Run(ctx, runArgs)
	if err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}

	imgId, err := os.ReadFile(imgIdFile)
	if err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}
	return strings.TrimSpace(string(imgId)), nil
}

func (d *docker) Tag(ctx context.Context, cwd string, imageName string, tag string) error {
	_, err := d.executeCommand(ctx, cwd, "tag", imageName, tag)
	if err != nil {
		return fmt.Errorf("tagging image: %w", err)
	}

	return nil
}

func (d *docker) Push(ctx context.Context, cwd string, tag string) error {
	_, err := d.executeCommand(ctx, cwd, "push", tag)
	if err != nil {
		return fmt.Errorf("pushing image: %w", err)
	}

	return nil
}

func (d *docker) versionInfo() tools.VersionInfo {
	return tools.VersionInfo{
		MinimumVersion: semver.Version{
			Major: 17,
			Minor: 9,
			Patch: 0},
		UpdateCommand: "Visit https://docs.docker.com/engine/release-notes/ to upgrade",
	}
}

// dockerVersionStringRegexp matches the text printed by "docker --version"
// and captures the version and build components.
var dockerVersionStringRegexp = regexp.MustCompile(`Docker version ([^,]*), build ([a-f0-9]*)`)

// dockerVersionReleaseBuildRegexp matches the three part version number
// from a docker version from an official release. The major and minor components are captured.
var dockerVersionReleaseBuildRegexp = regexp.MustCompile(`^(\d+).(\d+).\d+`)

// isSupportedDockerVersion returns true if the version string appears to be for a docker version
// of 17.09 or later and false if it does not.
func isSupportedDockerVersion(cliOutput string) (bool, error) {
	log.Printf("determining version from docker --version string: %s", cliOutput)

	matches := dockerVersionStringRegexp.FindStringSubmatch(cliOutput)

	// (3 matches, the entire string, and the two captures)
	if len(matches) != 3 {
		return false, fmt.Errorf("could not extract version component from docker version string")
	}

	version := matches[1]

	// Release versions look like 17.09.0-ce or 20.10.17+azure-1, which is not a semver
	// (leading zero in the minor component), so it is taken apart by hand.
	releaseVersionMatches := dockerVersionReleaseBuildRegexp.FindStringSubmatch(version)
	if releaseVersionMatches == nil {
		return false, fmt.Errorf("could not determine version from docker version string: %s", version)
	}

	major, err := strconv.Atoi(releaseVersionMatches[1])
	if err != nil {
		return false, fmt.Errorf(
			"failed to convert major version component %s to an integer: %w",
			releaseVersionMatches[1],
			err,
		)
	}

	minor, err := strconv.Atoi(releaseVersionMatches[2])
	if err != nil {
		return false, fmt.Errorf(
			"failed to convert minor version component %s to an integer: %w",
			releaseVersionMatches[2],
			err,
		)
	}

	return (major > 17 || (major == 17 && minor >= 9)), nil
}

func (d *docker) CheckInstalled(ctx context.Context) error {
	if err := tools.ToolInPath("docker"); err != nil {
		return err
	}
	dockerRes, err := tools.ExecuteCommand(ctx, d.commandRunner, "docker", "--version")
	if err != nil {
		return fmt.Errorf("checking %s version: %w", d.Name(), err)
	}
	supported, err := isSupportedDockerVersion(dockerRes)
	if err != nil {
		return err
	}
	if !supported {
		return &tools.ErrSemver{ToolName: d.Name(), VersionInfo: d.versionInfo()}
	}
	return nil
}

func (d *docker) InstallUrl() string {
	return "https://docs.docker.com/get-docker/"
}

func (d *docker) Name() string {
	return "Docker"
}

func (d *docker) executeCommand(ctx context.Context, cwd string, args ...string) (exec.RunResult, error) {
	runArgs := exec.NewRunArgs("docker", args...).
		WithCwd(cwd).
		WithEnv(tracing.Environ(ctx))

	return d.commandRunner.Run(ctx, runArgs)
}

// SplitDockerImage splits the image into the name and tag.
// If the image does not have a tag or is invalid, the full string is returned as name, and tag will be empty.
func SplitDockerImage(fullImg string) (name string, tag string) {
	split := -1
	// the colon separator can appear in two places:
	// 1. between the image and the tag, image:tag
	// 2. between the host and the port, in which case, it would be host:port/image:tag to be valid.
	for i, r := range fullImg {
		switch r {
		case ':':
			split = i
		case '/':
			// a tag cannot contain a path separator
			split = -1
		}
	}

	if split == -1 || split == len(fullImg)-1 {
		return fullImg, ""
	}

	return fullImg[:split], fullImg[split+1:]
}
