// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"gopkg.in/yaml.v3"
)

func TestGenerate(t *testing.T) {
	contents, err := Generate(Config{Environment: "prod", Branch: "main", Verify: true})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(contents, &parsed))

	require.Equal(t, "Deploy prod", parsed["name"])

	on := parsed["on"].(map[string]any)
	require.Equal(t, []any{"main"}, on["push"].(map[string]any)["branches"])
	require.Contains(t, on, "workflow_dispatch")

	job := parsed["jobs"].(map[string]any)["deploy"].(map[string]any)
	env := job["env"].(map[string]any)
	require.Len(t, env, 21)
	require.Equal(t, "${{ secrets.AZURE_CLIENT_SECRET }}", env["ARM_CLIENT_SECRET"])
	require.Equal(t, "${{ secrets.AZURE_TENANT_ID }}", env["AZURE_TENANT_ID"])
	require.Equal(t, "${{ vars.TC_CUSTOMER }}", env["TC_CUSTOMER"])
	require.Equal(t, "${{ vars.AZURE_RESOURCE_GROUP }}", env["AZURE_RESOURCE_GROUP"])
	require.Equal(t, "${{ vars.TC_PREDICT_BACKEND_BASE_URL }}", env["TC_PREDICT_BACKEND_BASE_URL"])
	require.Equal(t, "${{ vars.TC_LEGACY_STORAGE_ACCOUNT }}", env["TC_LEGACY_STORAGE_ACCOUNT"])
	require.Equal(t, "${{ secrets.TC_API_KEY }}", env["TC_API_KEY"])
	require.Equal(t, "${{ secrets.TC_PREDICT_BACKEND_API_KEY }}", env["TC_PREDICT_BACKEND_API_KEY"])
	require.NotContains(t, env, "TC_IMAGE_TAG")

	steps := job["steps"].([]any)
	require.Len(t, steps, 5)
	require.Equal(t, "actions/checkout@v4", steps[0].(map[string]any)["uses"])
	require.Equal(t, DefaultTerraformVersion, steps[1].(map[string]any)["with"].(map[string]any)["terraform_version"])
	require.Equal(t, "tcinfra up --no-prompt -e prod --verify", steps[4].(map[string]any)["run"])
}

func TestGenerateKeepsSecretOrder(t *testing.T) {
	contents, err := Generate(Config{Environment: "dev", Branch: "develop"})
	require.NoError(t, err)
	text := string(contents)
	order := []string{"AZURE_CLIENT_ID:", "AZURE_CLIENT_SECRET:", "AZURE_SUBSCRIPTION_ID:", "AZURE_TENANT_ID:",
		"ARM_CLIENT_ID:", "ARM_CLIENT_SECRET:", "ARM_SUBSCRIPTION_ID:", "ARM_TENANT_ID:"}
	for i := 1; i < len(order); i++ {
		require.Less(t, strings.Index(text, order[i-1]), strings.Index(text, order[i]))
	}
	require.Contains(t, string(contents), "tcinfra up --no-prompt -e dev\n")
}

func TestInputsCoverRequiredVariables(t *testing.T) {
	inputs := map[string]Input{}
	for _, input := range Inputs() {
		require.NotContains(t, inputs, input.Name)
		inputs[input.Name] = input
	}

	for _, v := range stack.Variables() {
		if v.Name == stack.VarImageTag {
			require.NotContains(t, inputs, v.EnvKey)
			continue
		}

		require.Contains(t, inputs, v.EnvKey)
		require.Equal(t, v.Required(), inputs[v.EnvKey].Required, v.EnvKey)
	}

	require.True(t, inputs["TC_API_KEY"].Secret)
	require.False(t, inputs["TC_CUSTOMER"].Secret)
	require.True(t, inputs["AZURE_SUBSCRIPTION_ID"].Secret)
}

func TestGenerateRequiresEnvironmentAndBranch(t *testing.T) {
	_, err := Generate(Config{Branch: "main"})
	require.ErrorContains(t, err, "environment is required")

	_, err = Generate(Config{Environment: "dev"})
	require.ErrorContains(t, err, "branch is required")
}

func TestWrite(t *testing.T) {
	root := t.TempDir()

	path, err := Write(root, Config{Environment: "staging", Branch: "release"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, ".github", "workflows", "deploy-staging.yml"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "- release")
}
