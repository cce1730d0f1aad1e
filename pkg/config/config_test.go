// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_SetGetUnsetWithValue(t *testing.T) {
	cfg := NewEmptyConfig()
	require.True(t, cfg.IsEmpty())

	require.NoError(t, cfg.Set(DefaultLocationPath, "westeurope"))
	require.NoError(t, cfg.Set(DefaultSubscriptionPath, "sub-1234"))
	require.False(t, cfg.IsEmpty())

	location, ok := cfg.GetString(DefaultLocationPath)
	require.True(t, ok)
	require.Equal(t, "westeurope", location)

	defaults, ok := cfg.Get("defaults")
	require.True(t, ok)
	require.Len(t, defaults, 2)

	require.NoError(t, cfg.Unset(DefaultLocationPath))
	_, ok = cfg.Get(DefaultLocationPath)
	require.False(t, ok)

	// unsetting a missing path is a no-op
	require.NoError(t, cfg.Unset("missing.path"))
}

func Test_SetThroughLeafFails(t *testing.T) {
	cfg := NewEmptyConfig()
	require.NoError(t, cfg.Set("defaults", "not-a-map"))
	require.Error(t, cfg.Set(DefaultLocationPath, "westeurope"))
	require.Error(t, cfg.Set("", "value"))

	_, ok := cfg.GetString("defaults.location")
	require.False(t, ok)
}

func Test_GetStringWrongType(t *testing.T) {
	cfg := NewConfig(map[string]any{"retries": 3})
	_, ok := cfg.GetString("retries")
	require.False(t, ok)
}

func Test_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	manager := NewManager()

	cfg := NewEmptyConfig()
	require.NoError(t, cfg.Set(DefaultLocationPath, "northeurope"))
	require.NoError(t, manager.Save(cfg, path))

	loaded, err := manager.Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Raw(), loaded.Raw())

	_, err = Parse([]byte("{not json"))
	require.Error(t, err)
}

func Test_UserConfigManager(t *testing.T) {
	t.Setenv(ConfigDirEnvVarName, t.TempDir())

	manager := NewUserConfigManager()
	cfg, err := manager.Load()
	require.NoError(t, err)
	require.True(t, cfg.IsEmpty())

	require.NoError(t, cfg.Set(DefaultSubscriptionPath, "sub-5678"))
	require.NoError(t, manager.Save(cfg))

	reloaded, err := manager.Load()
	require.NoError(t, err)
	value, ok := reloaded.GetString(DefaultSubscriptionPath)
	require.True(t, ok)
	require.Equal(t, "sub-5678", value)
}
