// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tensora/tcinfra/pkg/osutil"
)

const (
	cConfigDir = ".tcinfra"
	// ConfigDirEnvVarName overrides the user configuration directory.
	ConfigDirEnvVarName = "TCINFRA_CONFIG_DIR"

	// Well known user configuration paths
	DefaultLocationPath     = "defaults.location"
	DefaultSubscriptionPath = "defaults.subscription"
)

// Manager loads and saves configuration files
type Manager interface {
	Save(config Config, filePath string) error
	Load(filePath string) (Config, error)
}

type manager struct{}

// Creates a new Configuration Manager
func NewManager() Manager {
	return &manager{}
}

// Saves the configuration to the specified file path
func (c *manager) Save(config Config, filePath string) error {
	configJson, err := json.MarshalIndent(config.Raw(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed marshalling config JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), osutil.PermissionDirectory); err != nil {
		return fmt.Errorf("failed creating config directory: %w", err)
	}

	if err := os.WriteFile(filePath, configJson, osutil.PermissionFile); err != nil {
		return fmt.Errorf("failed writing configuration data: %w", err)
	}

	return nil
}

// Loads configuration from the specified file path
func (c *manager) Load(filePath string) (Config, error) {
	jsonBytes, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed reading configuration file: %w", err)
	}

	return Parse(jsonBytes)
}

// Parses configuration JSON and returns a Config instance
func Parse(configJson []byte) (Config, error) {
	var data map[string]any
	err := json.Unmarshal(configJson, &data)
	if err != nil {
		return nil, fmt.Errorf("failed unmarshalling configuration JSON: %w", err)
	}

	return NewConfig(data), nil
}

// GetUserConfigDir returns the config directory for storing user wide configuration data.
//
// The config directory is guaranteed to exist, otherwise an error is returned.
func GetUserConfigDir() (string, error) {
	configDirPath := os.Getenv(ConfigDirEnvVarName)
	if configDirPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine current home directory: %w", err)
		}

		configDirPath = filepath.Join(homeDir, cConfigDir)
	}

	err := os.MkdirAll(configDirPath, osutil.PermissionDirectoryOwnerOnly)
	return configDirPath, err
}

// UserConfigManager loads and saves the user wide configuration file.
type UserConfigManager struct {
	manager Manager
}

func NewUserConfigManager() *UserConfigManager {
	return &UserConfigManager{manager: NewManager()}
}

// Load returns the user configuration, or an empty configuration when none was saved yet.
func (m *UserConfigManager) Load() (Config, error) {
	path, err := userConfigFilePath()
	if err != nil {
		return nil, err
	}

	cfg, err := m.manager.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewEmptyConfig(), nil
	}

	return cfg, err
}

func (m *UserConfigManager) Save(cfg Config) error {
	path, err := userConfigFilePath()
	if err != nil {
		return err
	}

	return m.manager.Save(cfg, path)
}

func userConfigFilePath() (string, error) {
	dir, err := GetUserConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, "config.json"), nil
}
