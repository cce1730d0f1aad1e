// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package internal

import (
	"fmt"
	"strings"

	"github.com/blang/semver/v4"
)

// The version string, as printed by `tcinfra version`.
//
// This MUST be of the form "<semver> (commit <full commit hash>)". It is set at build time with
// -ldflags "-X github.com/tensora/tcinfra/internal.Version=..."
var Version = "0.0.0-dev.0 (commit 0000000000000000000000000000000000000000)"

// VersionInfo is the parsed form of Version.
type VersionInfo struct {
	Version semver.Version
	Commit  string
}

// GetVersionNumber returns the semver part of Version.
func GetVersionNumber() string {
	number, _, _ := strings.Cut(Version, " ")
	return number
}

// ParseVersion parses Version into its components.
func ParseVersion() (VersionInfo, error) {
	number := GetVersionNumber()
	version, err := semver.Parse(number)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("parsing version '%s': %w", number, err)
	}

	commit := strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(Version, number), " (commit "), ")")
	return VersionInfo{Version: version, Commit: commit}, nil
}

// IsDevVersion reports whether this is a local build, which skips version requirements.
func IsDevVersion() bool {
	info, err := ParseVersion()
	if err != nil {
		return true
	}

	return len(info.Version.Pre) > 0 && info.Version.Pre[0].VersionStr == "dev"
}

// UserAgent is sent with every Azure request.
func UserAgent() string {
	return fmt.Sprintf("tcinfra/%s", GetVersionNumber())
}
