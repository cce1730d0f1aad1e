// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package project

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/blang/semver/v4"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/containerimage"
	"github.com/tensora/tcinfra/pkg/environment/tccontext"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/osutil"
	"github.com/tensora/tcinfra/resources"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBranch        = "main"
	DefaultRestartDelay  = 30 * time.Second
	DefaultHealthTimeout = 5 * time.Minute
)

// ProjectConfig is the content of tcinfra.yaml.
type ProjectConfig struct {
	RequiredVersions *RequiredVersions `yaml:"requiredVersions,omitempty"`
	Name             string            `yaml:"name" jsonschema:"required"`
	// Image is the repository name of the application image inside the registry.
	Image         string                    `yaml:"image,omitempty"`
	Branch        string                    `yaml:"branch,omitempty"`
	HealthPath    string                    `yaml:"healthPath,omitempty"`
	Port          int                       `yaml:"port,omitempty"`
	RestartDelay  *Duration                 `yaml:"restartDelay,omitempty"`
	HealthTimeout Duration                  `yaml:"healthTimeout,omitempty"`
	Docker        DockerProjectOptions      `yaml:"docker,omitempty"`
	Container     containerimage.Definition `yaml:"container,omitempty"`
	Naming        stack.NameTemplates       `yaml:"naming,omitempty"`
	State         *StateOptions             `yaml:"state,omitempty"`

	// Path is the directory holding the project file.
	Path string `yaml:"-"`
}

type RequiredVersions struct {
	Tcinfra *string `yaml:"tcinfra,omitempty"`
}

type DockerProjectOptions struct {
	Path      string            `yaml:"path,omitempty"`
	Context   string            `yaml:"context,omitempty"`
	Platform  string            `yaml:"platform,omitempty"`
	BuildArgs map[string]string `yaml:"buildArgs,omitempty"`
}

// StateOptions configures the remote Terraform state in a storage account.
type StateOptions struct {
	ResourceGroup  string `yaml:"resourceGroup"`
	StorageAccount string `yaml:"storageAccount" jsonschema:"required"`
	Container      string `yaml:"container" jsonschema:"required"`
}

// Duration is a time.Duration written as "30s" in yaml.
type Duration time.Duration

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var value string
	if err := node.Decode(&value); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", value, err)
	}

	*d = Duration(parsed)
	return nil
}

// Parse will parse a project from a yaml string and return the project configuration
func Parse(yamlContent string) (*ProjectConfig, error) {
	var projectConfig ProjectConfig

	if strings.TrimSpace(yamlContent) == "" {
		return nil, errors.New("unable to parse tcinfra.yaml file. File is empty.")
	}

	if err := yaml.Unmarshal([]byte(yamlContent), &projectConfig); err != nil {
		return nil, fmt.Errorf(
			"unable to parse tcinfra.yaml file. Check the format of the file, "+
				"and also verify you have the latest version of the CLI: %w",
			err,
		)
	}

	if projectConfig.RequiredVersions != nil && projectConfig.RequiredVersions.Tcinfra != nil {
		supportedRange, err := semver.ParseRange(*projectConfig.RequiredVersions.Tcinfra)
		if err != nil {
			return nil, fmt.Errorf("%s is not a valid semver range (for requiredVersions.tcinfra): %w",
				*projectConfig.RequiredVersions.Tcinfra, err)
		}

		info, err := internal.ParseVersion()
		if err == nil && !internal.IsDevVersion() && !supportedRange(info.Version) {
			return nil, fmt.Errorf("this project requires a version of tcinfra within the range '%s', but you have '%s'",
				*projectConfig.RequiredVersions.Tcinfra,
				info.Version.String())
		}
	}

	if projectConfig.Name == "" {
		return nil, errors.New("parsing tcinfra.yaml: 'name' is required")
	}

	if projectConfig.State != nil {
		if projectConfig.State.StorageAccount == "" || projectConfig.State.Container == "" {
			return nil, errors.New("parsing tcinfra.yaml: 'state' requires 'storageAccount' and 'container'")
		}
	}

	if err := validateSchema([]byte(yamlContent)); err != nil {
		return nil, fmt.Errorf("parsing tcinfra.yaml: %w", err)
	}

	projectConfig.applyDefaults()

	if err := projectConfig.Container.Validate(); err != nil {
		return nil, fmt.Errorf("parsing tcinfra.yaml: %w", err)
	}

	return &projectConfig, nil
}

func (p *ProjectConfig) applyDefaults() {
	if p.Image == "" {
		p.Image = stack.DefaultImage
	}
	if p.Branch == "" {
		p.Branch = DefaultBranch
	}
	if p.HealthPath == "" {
		p.HealthPath = stack.DefaultHealthPath
	}
	if p.Port == 0 {
		p.Port = stack.DefaultPort
	}
	if p.RestartDelay == nil {
		delay := Duration(DefaultRestartDelay)
		p.RestartDelay = &delay
	}
	if p.HealthTimeout == 0 {
		p.HealthTimeout = Duration(DefaultHealthTimeout)
	}
	if p.Docker.Path == "" {
		p.Docker.Path = "./Dockerfile"
	}
	if p.Docker.Context == "" {
		p.Docker.Context = "."
	}
	if p.Container.Port == 0 {
		p.Container.Port = p.Port
	}
	p.Container = p.Container.WithDefaults()

	p.Docker.Path = filepath.FromSlash(p.Docker.Path)
	p.Docker.Context = filepath.FromSlash(p.Docker.Context)
}

// RestartWait is the delay before the web app restart. An explicit 0s turns the wait off.
func (p *ProjectConfig) RestartWait() time.Duration {
	if p.RestartDelay == nil {
		return DefaultRestartDelay
	}
	return time.Duration(*p.RestartDelay)
}

// Load hydrates the tcinfra.yaml configuring into an viewable structure
func Load(projectFilePath string) (*ProjectConfig, error) {
	log.Printf("Reading project from file '%s'\n", projectFilePath)
	bytes, err := os.ReadFile(projectFilePath)
	if err != nil {
		return nil, fmt.Errorf("reading project file: %w", err)
	}

	projectConfig, err := Parse(string(bytes))
	if err != nil {
		return nil, fmt.Errorf("parsing project file: %w", err)
	}

	projectConfig.Path = filepath.Dir(projectFilePath)
	return projectConfig, nil
}

// LoadFromWd finds the project root above wd and loads its project file.
func LoadFromWd(wd string) (tccontext.Root, *ProjectConfig, error) {
	root, err := tccontext.NewRootFromWd(wd)
	if errors.Is(err, tccontext.ErrNoProject) {
		return "", nil, &internal.ErrorWithSuggestion{
			Err:        err,
			Suggestion: "Run `tcinfra init` in the repository root to create tcinfra.yaml.",
		}
	} else if err != nil {
		return "", nil, err
	}

	projectConfig, err := Load(root.ProjectPath())
	if err != nil {
		return "", nil, err
	}

	return root, projectConfig, nil
}

// Save writes the project file.
func Save(projectConfig *ProjectConfig, projectFilePath string) error {
	copy := *projectConfig
	copy.Docker.Path = filepath.ToSlash(copy.Docker.Path)
	copy.Docker.Context = filepath.ToSlash(copy.Docker.Context)

	projectBytes, err := yaml.Marshal(&copy)
	if err != nil {
		return fmt.Errorf("marshalling project yaml: %w", err)
	}

	if err := os.WriteFile(projectFilePath, projectBytes, osutil.PermissionFile); err != nil {
		return fmt.Errorf("saving project file: %w", err)
	}

	projectConfig.Path = filepath.Dir(projectFilePath)
	return nil
}

// Template is the data the initial project file is rendered with.
type Template struct {
	Name   string
	Image  string
	Branch string
}

// New writes a fresh project file from the embedded template and loads it.
func New(projectFilePath string, data Template) (*ProjectConfig, error) {
	if data.Image == "" {
		data.Image = stack.DefaultImage
	}
	if data.Branch == "" {
		data.Branch = DefaultBranch
	}

	tmpl, err := template.New(tccontext.ProjectFileName).Parse(resources.ProjectTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing project template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering project template: %w", err)
	}

	if err := os.WriteFile(projectFilePath, buf.Bytes(), osutil.PermissionFile); err != nil {
		return nil, fmt.Errorf("writing project file: %w", err)
	}

	return Load(projectFilePath)
}

// DockerfilePath returns the absolute path of the Dockerfile.
func (p *ProjectConfig) DockerfilePath() string {
	return filepath.Join(p.Path, p.Docker.Path)
}

// DockerContext returns the absolute path of the build context.
func (p *ProjectConfig) DockerContext() string {
	return filepath.Join(p.Path, p.Docker.Context)
}
