// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package resources

import (
	_ "embed"
)

//go:embed templates/Dockerfile.tmpl
var DockerfileTemplate string

//go:embed templates/tcinfra.yaml.tmpl
var ProjectTemplate string
