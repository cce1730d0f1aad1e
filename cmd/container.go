// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/benbjohnson/clock"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/azapi"
	"github.com/tensora/tcinfra/pkg/azsdk"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/environment/tccontext"
	"github.com/tensora/tcinfra/pkg/exec"
	"github.com/tensora/tcinfra/pkg/infra/provisioning/terraform"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/pipeline"
	"github.com/tensora/tcinfra/pkg/project"
	"github.com/tensora/tcinfra/pkg/tools"
	"github.com/tensora/tcinfra/pkg/tools/docker"
	terraformTools "github.com/tensora/tcinfra/pkg/tools/terraform"
	"github.com/tensora/tcinfra/pkg/verify"
)

// container builds the services a command needs from the global flags. Everything is created on first use.
type container struct {
	global *internal.GlobalCommandOptions

	commandRunner      exec.CommandRunner
	httpClient         policy.Transporter
	credentialProvider azapi.CredentialProvider
	root               tccontext.Root
	project            *project.ProjectConfig
	env                *environment.Environment

	// processEnvironment lets a --no-prompt run use an environment without a file. Its values then come from the
	// process environment, which is how the generated workflow passes them.
	processEnvironment bool
}

func newContainer(global *internal.GlobalCommandOptions) *container {
	return &container{global: global}
}

func (c *container) CommandRunner() exec.CommandRunner {
	if c.commandRunner == nil {
		c.commandRunner = exec.NewCommandRunner(&exec.RunnerOptions{DebugLogging: c.global.EnableDebugLogging})
	}
	return c.commandRunner
}

func (c *container) HttpClient() policy.Transporter {
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c.httpClient
}

func (c *container) Project() (tccontext.Root, *project.ProjectConfig, error) {
	if c.project != nil {
		return c.root, c.project, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("getting working directory: %w", err)
	}

	root, projectConfig, err := project.LoadFromWd(wd)
	if err != nil {
		return "", nil, err
	}

	c.root = root
	c.project = projectConfig
	return root, projectConfig, nil
}

func (c *container) EnvManager() (*environment.Manager, error) {
	root, _, err := c.Project()
	if err != nil {
		return nil, err
	}

	return environment.NewManager(root), nil
}

// Environment loads the environment selected with -e, or the default one.
func (c *container) Environment() (*environment.Environment, error) {
	if c.env != nil {
		return c.env, nil
	}

	manager, err := c.EnvManager()
	if err != nil {
		return nil, err
	}

	name := c.global.EnvironmentName
	if name == "" {
		if name, err = manager.Default(); err != nil {
			return nil, err
		}
	}

	if name == "" {
		return nil, &internal.ErrorWithSuggestion{
			Err:        errors.New("no environment selected"),
			Suggestion: "Create one with `tcinfra env new <name>` or pass `-e <name>`.",
		}
	}

	env, err := manager.Get(name)
	switch {
	case errors.Is(err, environment.ErrEnvironmentNotFound) && c.processEnvironment && c.global.NoPrompt:
		if !environment.IsValidEnvironmentName(name) {
			return nil, fmt.Errorf("%w: '%s'", environment.ErrInvalidName, name)
		}

		log.Printf("environment '%s' has no file, reading its values from the process environment", name)
		env = environment.New(name, manager.Path(name))
	case errors.Is(err, environment.ErrEnvironmentNotFound):
		return nil, &internal.ErrorWithSuggestion{
			Err:        err,
			Suggestion: fmt.Sprintf("Run %s to create it.", output.WithBackticks("tcinfra env new "+name)),
		}
	case err != nil:
		return nil, err
	}

	c.env = env
	return env, nil
}

// Stack declares the resources of the selected environment.
func (c *container) Stack() (*stack.Stack, error) {
	_, projectConfig, err := c.Project()
	if err != nil {
		return nil, err
	}

	env, err := c.Environment()
	if err != nil {
		return nil, err
	}

	names, err := stack.NewNames(env.GetCustomer(), env.GetDeploymentEnvironment(), projectConfig.Naming)
	if err != nil {
		return nil, err
	}

	return stack.New(stack.Options{
		Names:      names,
		Image:      projectConfig.Image,
		HealthPath: projectConfig.HealthPath,
		Port:       projectConfig.Port,
	}), nil
}

func (c *container) clientOptions(ctx context.Context) *azsdk.ClientOptionsBuilder {
	return azsdk.DefaultClientOptionsBuilder(ctx, c.HttpClient(), internal.UserAgent())
}

func (c *container) credentials(ctx context.Context, env *environment.Environment) azapi.CredentialProvider {
	if c.credentialProvider == nil {
		c.credentialProvider = azapi.NewCredentialProvider(env.Getenv, c.clientOptions(ctx).BuildCoreClientOptions())
	}
	return c.credentialProvider
}

func (c *container) AzureClient(ctx context.Context) (*azapi.AzureClient, error) {
	env, err := c.Environment()
	if err != nil {
		return nil, err
	}

	builder := c.clientOptions(ctx)
	return azapi.NewAzureClient(
		c.credentials(ctx, env), builder.BuildArmClientOptions(), builder.BuildCoreClientOptions()), nil
}

func (c *container) TerraformProvider(ctx context.Context, declared *stack.Stack) (*terraform.TerraformProvider, error) {
	root, projectConfig, err := c.Project()
	if err != nil {
		return nil, err
	}

	env, err := c.Environment()
	if err != nil {
		return nil, err
	}

	credentials := c.credentials(ctx, env)
	options := terraform.Options{
		Secrets: azapi.NewSecretResolver(
			azapi.NewKeyVaultSecrets(credentials, c.clientOptions(ctx).BuildCoreClientOptions())),
	}

	if state := projectConfig.State; state != nil {
		resourceGroup := state.ResourceGroup
		if resourceGroup == "" {
			resourceGroup = env.GetResourceGroup()
		}

		options.Backend = &terraform.BackendConfig{
			ResourceGroup:  resourceGroup,
			StorageAccount: state.StorageAccount,
			Container:      state.Container,
			Key:            terraform.StateKey(declared.Names.Customer, declared.Names.Environment),
		}
		options.Containers = azapi.NewBlobContainers(credentials, c.clientOptions(ctx).BuildCoreClientOptions())
	}

	cli := terraformTools.NewTerraformCli(c.CommandRunner())
	cli.SetProgress(output.GetProgressWriter(ctx))
	return terraform.NewTerraformProvider(env, root.InfraDirectory(env.Name()), declared, cli, options), nil
}

// PipelineRunner wires the deployment sequence of the selected environment.
func (c *container) PipelineRunner(ctx context.Context, options pipeline.Options) (*pipeline.Runner, error) {
	root, projectConfig, err := c.Project()
	if err != nil {
		return nil, err
	}

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

	azureClient, err := c.AzureClient(ctx)
	if err != nil {
		return nil, err
	}

	if options.WorkDir == "" {
		options.WorkDir = root.EnvironmentDirectory(env.Name())
	}

	return pipeline.NewRunner(
		env,
		projectConfig,
		declared.Names,
		provider,
		docker.NewDocker(c.CommandRunner()),
		azureClient,
		pipeline.NewHealthChecker(c.HttpClient()),
		clock.New(),
		output.GetProgressWriter(ctx),
		options,
	), nil
}

func (c *container) Verifier(ctx context.Context) (*verify.Verifier, error) {
	_, projectConfig, err := c.Project()
	if err != nil {
		return nil, err
	}

	env, err := c.Environment()
	if err != nil {
		return nil, err
	}

	declared, err := c.Stack()
	if err != nil {
		return nil, err
	}

	azureClient, err := c.AzureClient(ctx)
	if err != nil {
		return nil, err
	}

	return verify.NewVerifier(
		env, declared, azureClient, pipeline.NewHealthChecker(c.HttpClient()), projectConfig.HealthPath), nil
}

func newTerraformTool(c *container) tools.ExternalTool {
	return terraformTools.NewTerraformCli(c.CommandRunner())
}

func newDockerTool(c *container) tools.ExternalTool {
	return docker.NewDocker(c.CommandRunner())
}
