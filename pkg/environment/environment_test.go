// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package environment

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/pkg/environment/tccontext"
)

func TestIsValidEnvironmentName(t *testing.T) {
	require.True(t, IsValidEnvironmentName("dev"))
	require.True(t, IsValidEnvironmentName("acme-prod_(2).v1"))
	require.False(t, IsValidEnvironmentName(""))
	require.False(t, IsValidEnvironmentName("no spaces"))
	require.False(t, IsValidEnvironmentName("a/b"))
}

func TestGetenvFallsBackToProcess(t *testing.T) {
	t.Setenv("TC_TEST_FROM_PROCESS", "process")

	env := NewWithValues("dev", map[string]string{"TC_TEST_FROM_FILE": "file"})
	require.Equal(t, "file", env.Getenv("TC_TEST_FROM_FILE"))
	require.Equal(t, "process", env.Getenv("TC_TEST_FROM_PROCESS"))

	_, found := env.LookupEnv("TC_TEST_MISSING_KEY")
	require.False(t, found)
}

func TestDeploymentEnvironmentDefaultsToName(t *testing.T) {
	env := NewWithValues("staging", nil)
	require.Equal(t, "staging", env.GetDeploymentEnvironment())

	env.DotenvSet(EnvironmentEnvVarName, "prod")
	require.Equal(t, "prod", env.GetDeploymentEnvironment())
}

func TestOutputs(t *testing.T) {
	env := NewWithValues("dev", nil)
	env.SetOutput("web_app_url", "https://example.azurewebsites.net")

	require.Equal(t, "https://example.azurewebsites.net", env.Values["TC_OUTPUT_WEB_APP_URL"])
	require.Equal(t, "https://example.azurewebsites.net", env.Output("web_app_url"))
	require.Equal(t, []string{"TC_OUTPUT_WEB_APP_URL=https://example.azurewebsites.net"}, env.Environ())
}

func TestManager(t *testing.T) {
	root := tccontext.Root(t.TempDir())
	manager := NewManager(root)

	envs, err := manager.List()
	require.NoError(t, err)
	require.Empty(t, envs)

	dev, err := manager.Create("dev")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root.Directory(), ".tcinfra", "dev", ".env"), dev.File)

	_, err = manager.Create("dev")
	require.ErrorIs(t, err, ErrEnvironmentExists)

	_, err = manager.Create("bad name")
	require.ErrorIs(t, err, ErrInvalidName)

	dev.DotenvSet(CustomerEnvVarName, "acme")
	require.NoError(t, manager.Save(dev))

	_, err = manager.Create("prod")
	require.NoError(t, err)
	require.NoError(t, manager.SetDefault("prod"))

	loaded, err := manager.Get("dev")
	require.NoError(t, err)
	require.Equal(t, "acme", loaded.GetCustomer())
	require.Equal(t, "dev", loaded.Values[EnvNameEnvVarName])

	_, err = manager.Get("missing")
	require.ErrorIs(t, err, ErrEnvironmentNotFound)

	envs, err = manager.List()
	require.NoError(t, err)
	require.Len(t, envs, 2)
	require.Equal(t, "dev", envs[0].Name)
	require.False(t, envs[0].IsDefault)
	require.Equal(t, "prod", envs[1].Name)
	require.True(t, envs[1].IsDefault)
}
