// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package workflow renders the GitHub Actions workflow that runs `tcinfra up` on every push to the tracked branch.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/osutil"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGoVersion        = "1.24"
	DefaultTerraformVersion = "1.9.8"
	// Directory is relative to the repository root.
	Directory = ".github/workflows"
)

// SecretNames are the repository secrets the workflow reads. Each is also exported as its ARM_ counterpart.
var SecretNames = []string{
	"AZURE_CLIENT_ID",
	"AZURE_CLIENT_SECRET",
	"AZURE_SUBSCRIPTION_ID",
	"AZURE_TENANT_ID",
}

var armNames = map[string]string{
	"AZURE_CLIENT_ID":       "ARM_CLIENT_ID",
	"AZURE_CLIENT_SECRET":   "ARM_CLIENT_SECRET",
	"AZURE_SUBSCRIPTION_ID": "ARM_SUBSCRIPTION_ID",
	"AZURE_TENANT_ID":       "ARM_TENANT_ID",
}

// Input is a repository variable or secret the job exports under the same name.
type Input struct {
	Name     string
	Secret   bool
	Required bool
}

// Expression is how the job reads the input.
func (i Input) Expression() string {
	if i.Secret {
		return fmt.Sprintf("${{ secrets.%s }}", i.Name)
	}

	return fmt.Sprintf("${{ vars.%s }}", i.Name)
}

// Inputs lists what a repository must define for the job: the service principal followed by the stack
// variables. Sensitive variables are secrets, the rest are variables. The image tag is left out since every
// deployment pushes its own.
func Inputs() []Input {
	inputs := make([]Input, 0, len(SecretNames))
	seen := map[string]bool{}
	for _, name := range SecretNames {
		inputs = append(inputs, Input{Name: name, Secret: true, Required: true})
		seen[name] = true
	}

	for _, v := range stack.Variables() {
		if seen[v.EnvKey] || v.Name == stack.VarImageTag {
			continue
		}

		inputs = append(inputs, Input{Name: v.EnvKey, Secret: v.Sensitive, Required: v.Required()})
	}

	return inputs
}

// Config selects the environment and branch one workflow deploys.
type Config struct {
	Environment      string
	Branch           string
	GoVersion        string
	TerraformVersion string
	// Verify adds --verify to the deployment command.
	Verify bool
}

type Workflow struct {
	Name        string            `yaml:"name"`
	On          Triggers          `yaml:"on"`
	Permissions map[string]string `yaml:"permissions,omitempty"`
	Concurrency *Concurrency      `yaml:"concurrency,omitempty"`
	Jobs        map[string]Job    `yaml:"jobs"`
}

type Triggers struct {
	Push             *PushTrigger `yaml:"push,omitempty"`
	WorkflowDispatch *struct{}    `yaml:"workflow_dispatch"`
}

type PushTrigger struct {
	Branches []string `yaml:"branches"`
}

type Concurrency struct {
	Group            string `yaml:"group"`
	CancelInProgress bool   `yaml:"cancel-in-progress"`
}

type Job struct {
	RunsOn string    `yaml:"runs-on"`
	Env    yaml.Node `yaml:"env"`
	Steps  []Step    `yaml:"steps"`
}

type Step struct {
	Name string            `yaml:"name"`
	Uses string            `yaml:"uses,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	Run  string            `yaml:"run,omitempty"`
}

func (c Config) validate() error {
	if c.Environment == "" {
		return errors.New("workflow: environment is required")
	}
	if c.Branch == "" {
		return errors.New("workflow: branch is required")
	}
	return nil
}

// FileName is the workflow file of an environment.
func FileName(environment string) string {
	return fmt.Sprintf("deploy-%s.yml", environment)
}

// New builds the workflow for config.
func New(config Config) (*Workflow, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	if config.GoVersion == "" {
		config.GoVersion = DefaultGoVersion
	}
	if config.TerraformVersion == "" {
		config.TerraformVersion = DefaultTerraformVersion
	}

	command := fmt.Sprintf("tcinfra up --no-prompt -e %s", config.Environment)
	if config.Verify {
		command += " --verify"
	}

	return &Workflow{
		Name: fmt.Sprintf("Deploy %s", config.Environment),
		On: Triggers{
			Push:             &PushTrigger{Branches: []string{config.Branch}},
			WorkflowDispatch: &struct{}{},
		},
		Permissions: map[string]string{"contents": "read"},
		Concurrency: &Concurrency{Group: "deploy-" + config.Environment},
		Jobs: map[string]Job{
			"deploy": {
				RunsOn: "ubuntu-latest",
				Env:    jobEnv(),
				Steps: []Step{
					{Name: "Checkout", Uses: "actions/checkout@v4"},
					{
						Name: "Setup Terraform",
						Uses: "hashicorp/setup-terraform@v3",
						With: map[string]string{
							"terraform_version": config.TerraformVersion,
							"terraform_wrapper": "false",
						},
					},
					{
						Name: "Setup Go",
						Uses: "actions/setup-go@v5",
						With: map[string]string{"go-version": config.GoVersion},
					},
					{Name: "Install tcinfra", Run: "go install github.com/tensora/tcinfra@latest"},
					{Name: "Deploy", Run: command},
				},
			},
		},
	}, nil
}

// jobEnv keeps the secret variables in SecretNames order, then their ARM_ aliases, then the stack inputs.
func jobEnv() yaml.Node {
	env := yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value string) {
		env.Content = append(env.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: value},
		)
	}

	inputs := Inputs()
	for _, input := range inputs[:len(SecretNames)] {
		add(input.Name, input.Expression())
	}
	for _, input := range inputs[:len(SecretNames)] {
		add(armNames[input.Name], input.Expression())
	}
	for _, input := range inputs[len(SecretNames):] {
		add(input.Name, input.Expression())
	}

	return env
}

// Generate renders the workflow for config.
func Generate(config Config) ([]byte, error) {
	workflow, err := New(config)
	if err != nil {
		return nil, err
	}

	buf := &bytes.Buffer{}
	encoder := yaml.NewEncoder(buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(workflow); err != nil {
		return nil, fmt.Errorf("encoding workflow: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Write generates the workflow into <repositoryRoot>/.github/workflows and returns its path.
func Write(repositoryRoot string, config Config) (string, error) {
	contents, err := Generate(config)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(repositoryRoot, filepath.FromSlash(Directory))
	if err := os.MkdirAll(dir, osutil.PermissionDirectory); err != nil {
		return "", fmt.Errorf("creating workflow directory: %w", err)
	}

	path := filepath.Join(dir, FileName(config.Environment))
	if err := os.WriteFile(path, contents, osutil.PermissionFile); err != nil {
		return "", fmt.Errorf("writing workflow: %w", err)
	}

	return path, nil
}
