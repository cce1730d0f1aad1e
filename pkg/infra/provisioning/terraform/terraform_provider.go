// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package terraform

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/infra/provisioning"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/osutil"
	"github.com/tensora/tcinfra/pkg/tools"
	"github.com/tensora/tcinfra/pkg/tools/terraform"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"
)

const planFileName = "main.tfplan"

// SecretResolver replaces references to secrets inside environment values with the secret value.
type SecretResolver interface {
	Resolve(ctx context.Context, value string) (string, error)
}

// TerraformProvider exposes infrastructure provisioning through Terraform. It writes the configuration of the
// declared stack into the infra directory of the environment and delegates everything else to terraform.
type TerraformProvider struct {
	env        *environment.Environment
	infraPath  string
	stack      *stack.Stack
	cli        terraform.TerraformCli
	backend    *BackendConfig
	containers StateContainers
	secrets    SecretResolver
}

type Options struct {
	// Backend is nil when state stays local in the infra directory.
	Backend *BackendConfig
	// Containers ensures the remote state container exists; only used with a Backend.
	Containers StateContainers
	Secrets    SecretResolver
}

// NewTerraformProvider creates a new instance of a Terraform Infra provider
func NewTerraformProvider(
	env *environment.Environment,
	infraPath string,
	declared *stack.Stack,
	cli terraform.TerraformCli,
	options Options,
) *TerraformProvider {
	declared.RemoteState = options.Backend != nil

	return &TerraformProvider{
		env:        env,
		infraPath:  infraPath,
		stack:      declared,
		cli:        cli,
		backend:    options.Backend,
		containers: options.Containers,
		secrets:    options.Secrets,
	}
}

// Name gets the name of the infra provider
func (t *TerraformProvider) Name() string {
	return "Terraform"
}

func (t *TerraformProvider) RequiredExternalTools() []tools.ExternalTool {
	return []tools.ExternalTool{t.cli}
}

// Generate writes main.tf.json and main.tfvars.json.
func (t *TerraformProvider) Generate(ctx context.Context) error {
	if err := t.stack.Names.Validate(); err != nil {
		return fmt.Errorf("invalid resource names: %w", err)
	}

	if err := stack.CheckReferences(t.stack); err != nil {
		return fmt.Errorf("checking references: %w", err)
	}

	values, err := t.variableValues(ctx)
	if err != nil {
		return err
	}

	config, err := stack.Render(t.stack)
	if err != nil {
		return err
	}

	vars, err := stack.RenderVars(values)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(t.infraPath, osutil.PermissionDirectoryOwnerOnly); err != nil {
		return fmt.Errorf("creating infra directory: %w", err)
	}

	log.Printf("writing terraform configuration to '%s'", t.infraPath)
	if err := os.WriteFile(t.configFilePath(), config, osutil.PermissionFile); err != nil {
		return fmt.Errorf("writing terraform configuration: %w", err)
	}

	if err := os.WriteFile(t.parametersFilePath(), vars, osutil.PermissionFileOwnerOnly); err != nil {
		return fmt.Errorf("writing terraform variables: %w", err)
	}

	t.cli.SetEnv(t.terraformEnv())
	t.cli.SetSensitive(append(stack.SensitiveValues(t.stack.Variables, values), t.env.Getenv("AZURE_CLIENT_SECRET")))
	return nil
}

// variableValues maps the environment onto the stack variables, resolving secret references first.
func (t *TerraformProvider) variableValues(ctx context.Context) (map[string]any, error) {
	var resolveErr error
	getenv := func(key string) string {
		value := t.env.Getenv(key)
		if t.secrets == nil || value == "" {
			return value
		}

		resolved, err := t.secrets.Resolve(ctx, value)
		if err != nil {
			resolveErr = multierr.Append(resolveErr, fmt.Errorf("resolving %s: %w", key, err))
			return ""
		}

		return resolved
	}

	values, err := stack.Values(t.stack.Variables, getenv)
	if resolveErr != nil {
		return nil, resolveErr
	}

	if err != nil {
		return nil, fmt.Errorf("mapping variables: %w", err)
	}

	// the tokens in resource names and the ones passed to terraform must agree
	values[stack.VarCustomer] = t.stack.Names.Customer
	values[stack.VarEnvironment] = t.stack.Names.Environment

	return values, nil
}

// terraformEnv passes the data directory and the service principal to terraform.
func (t *TerraformProvider) terraformEnv() []string {
	env := []string{
		fmt.Sprintf("TF_DATA_DIR=%s", t.dataDirPath()),
		"TF_IN_AUTOMATION=true",
	}

	armVars := map[string]string{
		"ARM_SUBSCRIPTION_ID": t.env.GetSubscriptionId(),
		"ARM_TENANT_ID":       t.env.GetTenantId(),
		"ARM_CLIENT_ID":       t.env.Getenv("AZURE_CLIENT_ID"),
		"ARM_CLIENT_SECRET":   t.env.Getenv("AZURE_CLIENT_SECRET"),
	}

	for _, key := range []string{"ARM_SUBSCRIPTION_ID", "ARM_TENANT_ID", "ARM_CLIENT_ID", "ARM_CLIENT_SECRET"} {
		if _, has := os.LookupEnv(key); has || armVars[key] == "" {
			continue
		}

		env = append(env, fmt.Sprintf("%s=%s", key, armVars[key]))
	}

	return env
}

// Init initializes the working directory, creating the remote state container first when one is configured.
func (t *TerraformProvider) Init(ctx context.Context) error {
	args := []string{}

	if t.backend != nil {
		if t.containers != nil {
			err := t.containers.EnsureContainer(ctx, t.backend.StorageAccount, t.backend.Container)
			if err != nil {
				return fmt.Errorf("ensuring state container '%s': %w", t.backend.Container, err)
			}
		}

		args = append(args, t.backend.Args()...)
	}

	if _, err := t.cli.Init(ctx, t.infraPath, args...); err != nil {
		return fmt.Errorf("terraform init failed: %w", err)
	}

	return nil
}

func (t *TerraformProvider) Validate(ctx context.Context) error {
	if _, err := t.cli.Validate(ctx, t.infraPath); err != nil {
		return fmt.Errorf("terraform validate failed: %w", err)
	}

	return nil
}

// Plan writes the plan file applied by the next Apply.
func (t *TerraformProvider) Plan(ctx context.Context) error {
	_, err := t.cli.Plan(ctx, t.infraPath, t.planFilePath(), t.varFileArg())
	if err != nil {
		return fmt.Errorf("terraform plan failed: %w", err)
	}

	return nil
}

// Apply applies the saved plan, or the configuration itself when no plan exists, and returns the outputs.
func (t *TerraformProvider) Apply(ctx context.Context) (*provisioning.DeployResult, error) {
	args := []string{"-auto-approve", t.varFileArg()}

	planExists := false
	if _, err := os.Stat(t.planFilePath()); err == nil {
		planExists = true
		args = []string{t.planFilePath()}
	}

	if _, err := t.cli.Apply(ctx, t.infraPath, args...); err != nil {
		return nil, fmt.Errorf("terraform apply failed: %w", err)
	}

	if planExists {
		// an applied plan is stale
		if err := os.Remove(t.planFilePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("failed removing plan file: %v", err)
		}
	}

	outputs, err := t.Outputs(ctx)
	if err != nil {
		return nil, err
	}

	return &provisioning.DeployResult{Outputs: outputs}, nil
}

// Outputs reads the outputs of the last apply.
func (t *TerraformProvider) Outputs(ctx context.Context) (map[string]provisioning.OutputParameter, error) {
	runResult, err := t.cli.Output(ctx, t.infraPath)
	if err != nil {
		return nil, fmt.Errorf("reading deployment output failed: %w", err)
	}

	return ParseOutputs(runResult)
}

// ParseOutputs converts `terraform output -json` into output parameters.
func ParseOutputs(outputJson string) (map[string]provisioning.OutputParameter, error) {
	if !gjson.Valid(outputJson) {
		return nil, errors.New("terraform output is not valid json")
	}

	outputs := map[string]provisioning.OutputParameter{}
	gjson.Parse(outputJson).ForEach(func(key, value gjson.Result) bool {
		outputType := value.Get("type")
		typeName := outputType.String()
		if outputType.IsArray() {
			typeName = outputType.Array()[0].String()
		}

		outputs[key.String()] = provisioning.OutputParameter{
			Type:      typeName,
			Value:     value.Get("value").Value(),
			Sensitive: value.Get("sensitive").Bool(),
		}
		return true
	})

	return outputs, nil
}

// Destroy deletes every resource of the stack.
func (t *TerraformProvider) Destroy(ctx context.Context, options provisioning.DestroyOptions) error {
	args := []string{t.varFileArg()}
	if options.AutoApprove {
		args = append(args, "-auto-approve")
	}

	if _, err := t.cli.Destroy(ctx, t.infraPath, args...); err != nil {
		return fmt.Errorf("terraform destroy failed: %w", err)
	}

	return nil
}

func (t *TerraformProvider) varFileArg() string {
	return fmt.Sprintf("-var-file=%s", t.parametersFilePath())
}

func (t *TerraformProvider) configFilePath() string {
	return filepath.Join(t.infraPath, stack.ConfigFileName)
}

func (t *TerraformProvider) parametersFilePath() string {
	return filepath.Join(t.infraPath, stack.VariablesFileName)
}

func (t *TerraformProvider) planFilePath() string {
	return filepath.Join(t.infraPath, planFileName)
}

func (t *TerraformProvider) dataDirPath() string {
	return filepath.Join(t.infraPath, ".terraform")
}
