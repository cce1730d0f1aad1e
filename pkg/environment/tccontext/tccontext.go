// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tccontext

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tensora/tcinfra/pkg/osutil"
)

// ProjectFileName is the name of the file that stores the project configuration. This file is located in the root of the
// repository and contains the project name, image and deployment settings.
const ProjectFileName = "tcinfra.yaml"

// EnvironmentConfigDirectoryName is the name of the directory that contains environment specific configuration.
// Inside this directory is a folder for each environment and a config.json that stores the default environment.
const EnvironmentConfigDirectoryName = ".tcinfra"

const configFileName = "config.json"

const configFileVersion = 1

// ErrNoProject is returned by NewRootFromWd when no project file is found.
var ErrNoProject = errors.New("no project exists; to create a new project, run `tcinfra init`")

// Root is the directory that contains tcinfra.yaml and the .tcinfra folder.
type Root string

func (c Root) Directory() string {
	return string(c)
}

// EnvironmentRoot returns the path to the .tcinfra directory.
func (c Root) EnvironmentRoot() string {
	return filepath.Join(c.Directory(), EnvironmentConfigDirectoryName)
}

// EnvironmentDirectory returns the directory holding the files of the named environment.
func (c Root) EnvironmentDirectory(name string) string {
	return filepath.Join(c.EnvironmentRoot(), name)
}

// InfraDirectory returns the working directory used for the generated Terraform configuration of an environment.
func (c Root) InfraDirectory(name string) string {
	return filepath.Join(c.EnvironmentDirectory(name), "infra")
}

func (c Root) ProjectPath() string {
	return filepath.Join(c.Directory(), ProjectFileName)
}

type configFile struct {
	Version            int    `json:"version"`
	DefaultEnvironment string `json:"defaultEnvironment"`
}

// DefaultEnvironmentName returns the name of the default environment or an empty string if no default environment is set.
func (c Root) DefaultEnvironmentName() (string, error) {
	path := filepath.Join(c.EnvironmentRoot(), configFileName)
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("reading config file: %w", err)
	}

	var config configFile
	if err := json.Unmarshal(file, &config); err != nil {
		return "", fmt.Errorf("deserializing config file: %w", err)
	}

	return config.DefaultEnvironment, nil
}

// SetDefaultEnvironmentName saves the environment that is used when tcinfra is run without a `-e` flag.
func (c Root) SetDefaultEnvironmentName(name string) error {
	path := filepath.Join(c.EnvironmentRoot(), configFileName)
	bytes, err := json.Marshal(configFile{
		Version:            configFileVersion,
		DefaultEnvironment: name,
	})
	if err != nil {
		return fmt.Errorf("serializing config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), osutil.PermissionDirectory); err != nil {
		return fmt.Errorf("creating environment root: %w", err)
	}

	if err := os.WriteFile(path, bytes, osutil.PermissionFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	// the environment directory holds secrets and generated files
	path = filepath.Join(c.EnvironmentRoot(), ".gitignore")
	return os.WriteFile(path, []byte("# .tcinfra is not intended to be committed\n*"), osutil.PermissionFile)
}

// NewRootFromWd returns the directory of the nearest project file.
//
// The project file is first searched for in the working directory, if not found, the parent directory is searched
// recursively up to root. If no project file is found, an error that matches [ErrNoProject] with [errors.Is] is returned.
func NewRootFromWd(wd string) (Root, error) {
	searchDir, err := filepath.Abs(wd)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		projectFilePath := filepath.Join(searchDir, ProjectFileName)
		stat, err := os.Stat(projectFilePath)
		if os.IsNotExist(err) || (err == nil && stat.IsDir()) {
			parent := filepath.Dir(searchDir)
			if parent == searchDir {
				return "", ErrNoProject
			}
			searchDir = parent
		} else if err == nil {
			break
		} else {
			return "", fmt.Errorf("searching for project file: %w", err)
		}
	}

	return Root(searchDir), nil
}

// NewRoot searches for the project root starting at the current working directory.
func NewRoot() (Root, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get the current directory: %w", err)
	}

	return NewRootFromWd(wd)
}
