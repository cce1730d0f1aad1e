// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/environment"
)

// newProjectDir changes into an empty directory with an isolated user configuration.
func newProjectDir(t *testing.T) string {
	color.NoColor = true

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TCINFRA_CONFIG_DIR", filepath.Join(t.TempDir(), "config"))
	for _, key := range []string{
		environment.CustomerEnvVarName,
		environment.EnvironmentEnvVarName,
		environment.SubscriptionIdEnvVarName,
		environment.ResourceGroupEnvVarName,
	} {
		t.Setenv(key, "")
	}

	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	out, err := runCmd(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestInit(t *testing.T) {
	dir := newProjectDir(t)

	out := mustRun(t, "init", "--name", "count", "--branch", "release")
	require.Contains(t, out, "Initialized project 'count'.")

	contents, err := os.ReadFile(filepath.Join(dir, "tcinfra.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "name: count")
	require.Contains(t, string(contents), "branch: release")

	_, err = runCmd(t, "init")
	var suggestion *internal.ErrorWithSuggestion
	require.ErrorAs(t, err, &suggestion)

	mustRun(t, "init", "--dockerfile")
	dockerfile, err := os.ReadFile(filepath.Join(dir, "Dockerfile"))
	require.NoError(t, err)
	require.Contains(t, string(dockerfile), "EXPOSE 8000")
}

func TestCommandsRequireProject(t *testing.T) {
	newProjectDir(t)

	_, err := runCmd(t, "env", "list")
	var suggestion *internal.ErrorWithSuggestion
	require.ErrorAs(t, err, &suggestion)
	require.Contains(t, suggestion.Suggestion, "tcinfra init")
}

func TestCommandsRequireEnvironment(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")

	_, err := runCmd(t, "show")
	var suggestion *internal.ErrorWithSuggestion
	require.ErrorAs(t, err, &suggestion)
	require.Contains(t, suggestion.Suggestion, "tcinfra env new")

	_, err = runCmd(t, "show", "-e", "missing")
	require.ErrorIs(t, err, environment.ErrEnvironmentNotFound)
}

func TestEnvLifecycle(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")
	mustRun(t, "config", "set", "defaults.location", "northeurope")

	mustRun(t, "env", "new", "dev", "--customer", "acme", "--subscription", "sub", "--resource-group", "rg-acme-dev")
	mustRun(t, "env", "new", "prod", "--customer", "acme")
	mustRun(t, "env", "select", "dev")

	out := mustRun(t, "env", "list", "-o", "json")
	var envs []environment.Description
	require.NoError(t, json.Unmarshal([]byte(out), &envs))
	require.Len(t, envs, 2)
	require.Equal(t, "dev", envs[0].Name)
	require.True(t, envs[0].IsDefault)
	require.False(t, envs[1].IsDefault)

	mustRun(t, "env", "set", "TC_LOG_LEVEL", "DEBUG")

	out = mustRun(t, "env", "get-values")
	require.Contains(t, out, `TC_CUSTOMER="acme"`)
	require.Contains(t, out, `TC_LOG_LEVEL="DEBUG"`)
	require.Contains(t, out, `AZURE_LOCATION="northeurope"`)

	out = mustRun(t, "env", "get-values", "-e", "prod", "-o", "json")
	var values map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	require.Equal(t, "prod", values[environment.EnvNameEnvVarName])
	require.NotContains(t, values, "TC_LOG_LEVEL")

	_, err := runCmd(t, "env", "new", "dev")
	require.ErrorIs(t, err, environment.ErrEnvironmentExists)

	_, err = runCmd(t, "env", "new", "bad name")
	require.ErrorIs(t, err, environment.ErrInvalidName)
}

func TestShow(t *testing.T) {
	newProjectDir(t)
	mustRun(t, "init")
	mustRun(t, "env", "new", "prod", "--customer", "acme")

	out := mustRun(t, "show", "-o", "json")
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, "P1v3", result["planSku"])

	names := result["names"].(map[string]any)
	require.Equal(t, "tensora-acme-prod-cosmos", names["cosmosAccount"])
	require.Equal(t, "tensoraacmeprodacr", names["registry"])
	require.Equal(t, "tensora-acme-prod-count-api", names["webApp"])

	out = mustRun(t, "show")
	require.Contains(t, out, "Not provisioned yet.")

	out = mustRun(t, "show", "-o", "json", "--query", "names.webApp")
	require.Equal(t, "\"tensora-acme-prod-count-api\"\n", out)

	_, err := runCmd(t, "show", "--query", "names.webApp")
	require.ErrorContains(t, err, "--query requires --output json")
}

func TestPipelineConfig(t *testing.T) {
	dir := newProjectDir(t)
	mustRun(t, "init", "--branch", "release")
	mustRun(t, "env", "new", "staging", "--customer", "acme")

	out := mustRun(t, "pipeline", "config")
	for _, name := range []string{
		"AZURE_CLIENT_SECRET", "AZURE_RESOURCE_GROUP", "TC_CUSTOMER", "TC_API_KEY",
		"TC_PREDICT_BACKEND_BASE_URL", "TC_PREDICT_BACKEND_API_KEY", "TC_LEGACY_STORAGE_ACCOUNT",
	} {
		require.Contains(t, out, "`"+name+"`")
	}
	require.Contains(t, out, "`TC_LOG_LEVEL` (optional)")
	require.NotContains(t, out, "TC_IMAGE_TAG")

	contents, err := os.ReadFile(filepath.Join(dir, ".github", "workflows", "deploy-staging.yml"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "tcinfra up --no-prompt -e staging")
	require.Contains(t, string(contents), "- release")
}

func TestVersion(t *testing.T) {
	newProjectDir(t)

	out := mustRun(t, "version")
	require.Contains(t, out, "tcinfra version "+internal.Version)

	out = mustRun(t, "version", "-o", "json")
	var result versionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, internal.GetVersionNumber(), result.Version)
}

func TestSchema(t *testing.T) {
	newProjectDir(t)

	out := mustRun(t, "schema")
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	require.Equal(t, "tcinfra.yaml", schema["title"])
	require.Contains(t, schema["properties"], "restartDelay")

	out = mustRun(t, "schema", "-o", "json", "--query", "required")
	require.JSONEq(t, `["name"]`, out)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	newProjectDir(t)

	_, err := runCmd(t, "version", "-o", "table")
	require.ErrorContains(t, err, "unsupported format")
}
