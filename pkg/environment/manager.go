// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package environment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tensora/tcinfra/pkg/environment/tccontext"
)

var (
	ErrEnvironmentExists   = errors.New("environment already exists")
	ErrEnvironmentNotFound = errors.New("environment not found")
	ErrInvalidName         = errors.New("invalid environment name")
)

type Description struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	Path      string `json:"path"`
}

// Manager stores named environments under the .tcinfra directory of a project.
type Manager struct {
	root tccontext.Root
}

func NewManager(root tccontext.Root) *Manager {
	return &Manager{root: root}
}

// Path returns the .env file backing the named environment.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.root.EnvironmentDirectory(name), DotEnvFileName)
}

// Create creates and saves a new environment.
func (m *Manager) Create(name string) (*Environment, error) {
	if !IsValidEnvironmentName(name) {
		return nil, fmt.Errorf("%w: '%s'. Names may only contain alphanumeric characters, '-', '(', ')', '_' or '.'",
			ErrInvalidName, name)
	}

	if _, err := os.Stat(m.Path(name)); err == nil {
		return nil, fmt.Errorf("environment '%s': %w", name, ErrEnvironmentExists)
	}

	env := New(name, m.Path(name))
	if err := env.Save(); err != nil {
		return nil, err
	}

	return env, nil
}

func (m *Manager) Get(name string) (*Environment, error) {
	path := m.Path(name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("environment '%s': %w", name, ErrEnvironmentNotFound)
	}

	return FromFile(name, path)
}

func (m *Manager) Save(env *Environment) error {
	if env.File == "" {
		env.File = m.Path(env.Name())
	}

	return env.Save()
}

// List returns the environments of the project, sorted by name.
func (m *Manager) List() ([]*Description, error) {
	defaultName, err := m.root.DefaultEnvironmentName()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(m.root.EnvironmentRoot())
	if errors.Is(err, os.ErrNotExist) {
		return []*Description{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("listing environments: %w", err)
	}

	envs := []*Description{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if _, err := os.Stat(m.Path(entry.Name())); err != nil {
			continue
		}

		envs = append(envs, &Description{
			Name:      entry.Name(),
			IsDefault: entry.Name() == defaultName,
			Path:      m.Path(entry.Name()),
		})
	}

	sort.Slice(envs, func(i, j int) bool { return envs[i].Name < envs[j].Name })
	return envs, nil
}

func (m *Manager) SetDefault(name string) error {
	return m.root.SetDefaultEnvironmentName(name)
}

func (m *Manager) Default() (string, error) {
	return m.root.DefaultEnvironmentName()
}
