// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package environment

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tensora/tcinfra/pkg/osutil"
)

// EnvNameEnvVarName is the name of the key used to store the envname property in the environment.
const EnvNameEnvVarName = "TC_ENV_NAME"

// LocationEnvVarName is the name of the key used to store the location property in the environment.
const LocationEnvVarName = "AZURE_LOCATION"

// SubscriptionIdEnvVarName is the name of they key used to store the subscription id property in the environment.
const SubscriptionIdEnvVarName = "AZURE_SUBSCRIPTION_ID"

// TenantIdEnvVarName is the tenant that owns the subscription
const TenantIdEnvVarName = "AZURE_TENANT_ID"

// ResourceGroupEnvVarName is the name of the azure resource group that should be used for deployments
const ResourceGroupEnvVarName = "AZURE_RESOURCE_GROUP"

const (
	CustomerEnvVarName    = "TC_CUSTOMER"
	EnvironmentEnvVarName = "TC_ENVIRONMENT"
)

// OutputPrefix is prepended to the upper-cased name of every provisioning output stored in the environment.
const OutputPrefix = "TC_OUTPUT_"

// DotEnvFileName is the name of the file backing an environment.
const DotEnvFileName = ".env"

type Environment struct {
	name string
	// Values is a map of setting names to values.
	Values map[string]string
	// File is a path to the file that backs this environment. If empty, the Environment
	// will not be persisted when `Save` is called. This allows the zero value to be used
	// for testing.
	File string
}

// Same restrictions as a deployment name (ref: https://docs.microsoft.com/azure/azure-resource-manager/management/resource-name-rules#microsoftresources)
var environmentNameRegexp = regexp.MustCompile(`^[a-zA-Z0-9-\(\)_\.]{1,64}$`)

func IsValidEnvironmentName(name string) bool {
	return environmentNameRegexp.MatchString(name)
}

// FromFile loads an environment from a file on disk.
func FromFile(name string, file string) (*Environment, error) {
	values, err := godotenv.Read(file)
	if err != nil {
		return nil, fmt.Errorf("can't read %s: %w", file, err)
	}

	return &Environment{
		name:   name,
		Values: values,
		File:   file,
	}, nil
}

// New returns an empty environment, which will be persisted to a given file when saved.
func New(name string, file string) *Environment {
	return &Environment{
		name:   name,
		File:   file,
		Values: map[string]string{EnvNameEnvVarName: name},
	}
}

// NewWithValues returns an in-memory environment, useful for tests.
func NewWithValues(name string, values map[string]string) *Environment {
	if values == nil {
		values = map[string]string{}
	}

	return &Environment{name: name, Values: values}
}

// Name is the name of the environment.
func (e *Environment) Name() string {
	return e.name
}

// If `File` is set, Save writes the current contents of the environment to
// the given file, creating it and any intermediate directories as needed.
func (e *Environment) Save() error {
	if e.File == "" {
		return nil
	}

	err := os.MkdirAll(filepath.Dir(e.File), osutil.PermissionDirectory)
	if err != nil {
		return fmt.Errorf("failed to create a directory: %w", err)
	}

	err = godotenv.Write(e.Values, e.File)
	if err != nil {
		return fmt.Errorf("can't write '%s': %w", e.File, err)
	}

	return nil
}

// Getenv fetches a key from the environment file, falling back to the process environment.
func (e *Environment) Getenv(key string) string {
	if v, has := e.Values[key]; has {
		return v
	}

	return os.Getenv(key)
}

// LookupEnv is Getenv reporting whether the key was found at all.
func (e *Environment) LookupEnv(key string) (string, bool) {
	if v, has := e.Values[key]; has {
		return v, true
	}

	return os.LookupEnv(key)
}

func (e *Environment) DotenvSet(key string, value string) {
	e.Values[key] = value
}

// Environ returns the values as KEY=VALUE pairs, sorted by key.
func (e *Environment) Environ() []string {
	keys := make([]string, 0, len(e.Values))
	for k := range e.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, e.Values[k]))
	}

	return env
}

// SetOutput stores a provisioning output under its TC_OUTPUT_ key.
func (e *Environment) SetOutput(name string, value string) {
	e.Values[OutputKey(name)] = value
}

// Output returns a stored provisioning output.
func (e *Environment) Output(name string) string {
	return e.Values[OutputKey(name)]
}

// OutputKey returns the environment key for a provisioning output name.
func OutputKey(name string) string {
	return OutputPrefix + strings.ToUpper(name)
}

func (e *Environment) GetSubscriptionId() string {
	return e.Getenv(SubscriptionIdEnvVarName)
}

func (e *Environment) SetSubscriptionId(id string) {
	e.Values[SubscriptionIdEnvVarName] = id
}

func (e *Environment) GetTenantId() string {
	return e.Getenv(TenantIdEnvVarName)
}

func (e *Environment) GetLocation() string {
	return e.Getenv(LocationEnvVarName)
}

func (e *Environment) SetLocation(location string) {
	e.Values[LocationEnvVarName] = location
}

func (e *Environment) GetResourceGroup() string {
	return e.Getenv(ResourceGroupEnvVarName)
}

func (e *Environment) GetCustomer() string {
	return e.Getenv(CustomerEnvVarName)
}

// GetDeploymentEnvironment returns the environment token used in resource names (dev, staging, prod).
// The environment name is used when no token was configured.
func (e *Environment) GetDeploymentEnvironment() string {
	if v := e.Getenv(EnvironmentEnvVarName); v != "" {
		return v
	}

	return e.name
}
