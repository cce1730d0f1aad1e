// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tccontext

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootFromWd(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectFileName), []byte("name: count\n"), 0600))

	nested := filepath.Join(dir, "src", "app")
	require.NoError(t, os.MkdirAll(nested, 0755))

	root, err := NewRootFromWd(nested)
	require.NoError(t, err)
	require.Equal(t, dir, root.Directory())
	require.Equal(t, filepath.Join(dir, ".tcinfra", "dev", "infra"), root.InfraDirectory("dev"))
}

func TestNewRootFromWdNoProject(t *testing.T) {
	_, err := NewRootFromWd(t.TempDir())
	require.ErrorIs(t, err, ErrNoProject)
}

func TestDefaultEnvironmentName(t *testing.T) {
	root := Root(t.TempDir())

	name, err := root.DefaultEnvironmentName()
	require.NoError(t, err)
	require.Empty(t, name)

	require.NoError(t, root.SetDefaultEnvironmentName("staging"))
	name, err = root.DefaultEnvironmentName()
	require.NoError(t, err)
	require.Equal(t, "staging", name)

	require.FileExists(t, filepath.Join(root.EnvironmentRoot(), ".gitignore"))
}
