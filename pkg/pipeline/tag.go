// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package pipeline

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/clock"
)

const shortShaLength = 7

// ImageTag picks the tag of the image built by this run: the explicit tag when given, otherwise the short commit
// SHA reported by GitHub Actions, otherwise a UTC timestamp.
func ImageTag(explicit string, getenv func(string) string, clk clock.Clock) string {
	if tag := strings.TrimSpace(explicit); tag != "" {
		return tag
	}

	if sha := strings.TrimSpace(getenv("GITHUB_SHA")); sha != "" {
		if len(sha) > shortShaLength {
			sha = sha[:shortShaLength]
		}
		return sha
	}

	return clk.Now().UTC().Format("20060102150405")
}

// ImageReference is <login server>/<image>:<tag>.
func ImageReference(loginServer string, image string, tag string) string {
	return fmt.Sprintf("%s/%s:%s", strings.TrimSuffix(loginServer, "/"), image, tag)
}
