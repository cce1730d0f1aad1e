// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ConfigFileName    = "main.tf.json"
	VariablesFileName = "main.tfvars.json"
)

// Render emits the Terraform JSON configuration of the stack. Object keys are sorted so the output is stable.
func Render(s *Stack) ([]byte, error) {
	terraform := map[string]any{
		"required_version": RequiredTerraformVersion,
		"required_providers": map[string]any{
			"azurerm": map[string]any{
				"source":  ProviderSource,
				"version": ProviderVersion,
			},
		},
	}

	if s.RemoteState {
		// configured through -backend-config at init time
		terraform["backend"] = map[string]any{
			"azurerm": map[string]any{},
		}
	}

	variables := map[string]any{}
	for _, v := range s.Variables {
		block := map[string]any{
			"type":        string(v.Type),
			"description": v.Description,
		}
		if v.Default != nil {
			block["default"] = v.Default
		}
		if v.Sensitive {
			block["sensitive"] = true
		}
		variables[v.Name] = block
	}

	outputs := map[string]any{}
	for _, o := range s.Outputs {
		block := map[string]any{
			"value":       o.Value,
			"description": o.Description,
		}
		if o.Sensitive {
			block["sensitive"] = true
		}
		outputs[o.Name] = block
	}

	config := map[string]any{
		"terraform": terraform,
		"provider": map[string]any{
			"azurerm": map[string]any{
				"features":        map[string]any{},
				"subscription_id": Var(VarSubscriptionId),
			},
		},
		"variable": variables,
		"data":     groupBlocks(s.DataSources),
		"resource": groupBlocks(s.Resources),
		"output":   outputs,
	}

	return marshal(config)
}

// RenderVars emits the variable values file.
func RenderVars(values map[string]any) ([]byte, error) {
	if values == nil {
		values = map[string]any{}
	}

	return marshal(values)
}

func groupBlocks(blocks []Block) map[string]any {
	grouped := map[string]any{}
	for _, b := range blocks {
		byName, has := grouped[b.Type].(map[string]any)
		if !has {
			byName = map[string]any{}
			grouped[b.Type] = byName
		}

		byName[b.Name] = b.Attributes
	}

	return grouped
}

func marshal(value any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	// keep '>' and '&' in expressions readable
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(value); err != nil {
		return nil, fmt.Errorf("encoding terraform json: %w", err)
	}

	return buf.Bytes(), nil
}
