// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package containerimage describes the image that packages the count API and renders it to a Dockerfile.
package containerimage

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/tensora/tcinfra/resources"
	"go.uber.org/multierr"
)

const (
	DefaultBaseImage    = "python:3.11-slim"
	DefaultWorkDir      = "/code"
	DefaultRequirements = "requirements.txt"
	DefaultSource       = "./app"
	DefaultPort         = 8000
)

// DefaultCommand starts the ASGI server listening on every interface.
var DefaultCommand = fmt.Sprintf("uvicorn app.main:app --host 0.0.0.0 --port %d", DefaultPort)

var ErrInvalidDefinition = errors.New("invalid container image definition")

// Definition is the container image built from the application sources.
type Definition struct {
	BaseImage    string `yaml:"baseImage,omitempty"`
	WorkDir      string `yaml:"workDir,omitempty"`
	Requirements string `yaml:"requirements,omitempty"`
	Source       string `yaml:"source,omitempty"`
	Port         int    `yaml:"port,omitempty"`
	Command      string `yaml:"command,omitempty"`
}

// WithDefaults returns a copy of d where unset fields carry their default value.
func (d Definition) WithDefaults() Definition {
	if d.BaseImage == "" {
		d.BaseImage = DefaultBaseImage
	}
	if d.WorkDir == "" {
		d.WorkDir = DefaultWorkDir
	}
	if d.Requirements == "" {
		d.Requirements = DefaultRequirements
	}
	if d.Source == "" {
		d.Source = DefaultSource
	}
	if d.Port == 0 {
		d.Port = DefaultPort
	}
	if d.Command == "" {
		d.Command = fmt.Sprintf("uvicorn app.main:app --host 0.0.0.0 --port %d", d.Port)
	}

	return d
}

// Validate reports every problem of the definition at once.
func (d Definition) Validate() error {
	var err error
	if strings.TrimSpace(d.BaseImage) == "" {
		err = multierr.Append(err, errors.New("base image is required"))
	}
	if !path.IsAbs(d.WorkDir) {
		err = multierr.Append(err, fmt.Errorf("work dir '%s' must be an absolute path", d.WorkDir))
	}
	if d.Port < 1 || d.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port %d is outside 1-65535", d.Port))
	}
	if strings.TrimSpace(d.Command) == "" {
		err = multierr.Append(err, errors.New("command is required"))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}

	return nil
}

type dockerfileData struct {
	Definition
	SourceDir   string
	CommandArgs string
}

// Dockerfile renders the definition. The definition is validated first.
func (d Definition) Dockerfile() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	tmpl, err := template.New("Dockerfile").Parse(resources.DockerfileTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing Dockerfile template: %w", err)
	}

	args := strings.Fields(d.Command)
	for i, arg := range args {
		args[i] = strconv.Quote(arg)
	}

	data := dockerfileData{
		Definition:  d,
		SourceDir:   path.Base(path.Clean(d.Source)),
		CommandArgs: strings.Join(args, ", "),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering Dockerfile: %w", err)
	}

	return buf.Bytes(), nil
}
