// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package internal

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	Version = "1.4.2 (commit 8d2e1b6f0c3a4b5e6f708192a3b4c5d6e7f80912)"
	info, err := ParseVersion()

	require.NoError(t, err)
	require.Equal(t, "1.4.2", info.Version.String())
	require.Equal(t, "8d2e1b6f0c3a4b5e6f708192a3b4c5d6e7f80912", info.Commit)
	require.Equal(t, "1.4.2", GetVersionNumber())

	Version = "not-a-version"
	_, err = ParseVersion()
	require.Error(t, err)
}

func TestIsDevVersion(t *testing.T) {
	original := Version
	t.Cleanup(func() { Version = original })

	require.True(t, IsDevVersion())

	Version = "1.4.2 (commit 8d2e1b6f0c3a4b5e6f708192a3b4c5d6e7f80912)"
	require.False(t, IsDevVersion())
}
