// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package provisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/tools"
)

// OutputParameter is one value reported by the provisioning engine after apply.
type OutputParameter struct {
	Type      string `json:"type"`
	Value     any    `json:"value"`
	Sensitive bool   `json:"sensitive,omitempty"`
}

// DeployResult is the outcome of an apply.
type DeployResult struct {
	Outputs map[string]OutputParameter
}

type DestroyOptions struct {
	AutoApprove bool
}

// Provider hands the declared stack to an external provisioning engine. It never inspects or reconciles state.
type Provider interface {
	Name() string
	RequiredExternalTools() []tools.ExternalTool
	// Generate writes the engine configuration and variable values.
	Generate(ctx context.Context) error
	Init(ctx context.Context) error
	Validate(ctx context.Context) error
	Plan(ctx context.Context) error
	Apply(ctx context.Context) (*DeployResult, error)
	Outputs(ctx context.Context) (map[string]OutputParameter, error)
	Destroy(ctx context.Context, options DestroyOptions) error
}

// Provision runs generate, init, validate, plan and apply in order and stores the outputs in env.
func Provision(ctx context.Context, provider Provider, env *environment.Environment) (*DeployResult, error) {
	if err := provider.Generate(ctx); err != nil {
		return nil, fmt.Errorf("generating configuration: %w", err)
	}

	if err := provider.Init(ctx); err != nil {
		return nil, err
	}

	if err := provider.Validate(ctx); err != nil {
		return nil, err
	}

	if err := provider.Plan(ctx); err != nil {
		return nil, err
	}

	result, err := provider.Apply(ctx)
	if err != nil {
		return nil, err
	}

	if err := UpdateEnvironment(env, result.Outputs); err != nil {
		return nil, err
	}

	return result, nil
}

// UpdateEnvironment stores every output in env under its TC_OUTPUT_ key and saves env. Non-string values are stored
// as JSON.
func UpdateEnvironment(env *environment.Environment, outputs map[string]OutputParameter) error {
	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		output := outputs[name]
		if str, ok := output.Value.(string); ok {
			env.SetOutput(name, str)
			continue
		}

		bytes, err := json.Marshal(output.Value)
		if err != nil {
			return fmt.Errorf("invalid value for output parameter '%s' (%s): %w", name, output.Type, err)
		}
		env.SetOutput(name, string(bytes))
	}

	if err := env.Save(); err != nil {
		return fmt.Errorf("writing environment: %w", err)
	}

	return nil
}
