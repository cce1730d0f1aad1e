// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"fmt"
	"strconv"

	"go.uber.org/multierr"
)

type VariableType string

const (
	VariableTypeString VariableType = "string"
	VariableTypeBool   VariableType = "bool"
)

// Variable is a named input slot of the stack.
type Variable struct {
	Name        string
	Type        VariableType
	Default     any
	Description string
	Sensitive   bool
	// EnvKey is the environment key the value is read from.
	EnvKey string
}

// Required reports whether a value must be supplied.
func (v Variable) Required() bool {
	return v.Default == nil
}

const (
	VarSubscriptionId           = "subscription_id"
	VarLocation                 = "location"
	VarResourceGroupName        = "resource_group_name"
	VarCustomer                 = "customer"
	VarEnvironment              = "environment"
	VarApiKey                   = "api_key"
	VarLogLevel                 = "log_level"
	VarPredictBackendBaseUrl    = "predict_backend_base_url"
	VarPredictBackendApiKey     = "predict_backend_api_key"
	VarImageTag                 = "image_tag"
	VarUseLegacyDatabase        = "use_legacy_database"
	VarLegacyResourceGroupName  = "legacy_resource_group_name"
	VarLegacyCosmosAccountName  = "legacy_cosmos_account_name"
	VarLegacyCosmosDatabaseName = "legacy_cosmos_database_name"
	VarLegacyStorageAccountName = "legacy_storage_account_name"
)

// Variables returns the declared input slots in declaration order.
func Variables() []Variable {
	return []Variable{
		{
			Name: VarSubscriptionId, Type: VariableTypeString, EnvKey: "AZURE_SUBSCRIPTION_ID",
			Description: "Subscription that owns every resource.",
		},
		{
			Name: VarLocation, Type: VariableTypeString, Default: "westeurope", EnvKey: "AZURE_LOCATION",
			Description: "Azure region of the new resources.",
		},
		{
			Name: VarResourceGroupName, Type: VariableTypeString, EnvKey: "AZURE_RESOURCE_GROUP",
			Description: "Existing resource group the resources are created in.",
		},
		{
			Name: VarCustomer, Type: VariableTypeString, EnvKey: "TC_CUSTOMER",
			Description: "Customer token used in resource names.",
		},
		{
			Name: VarEnvironment, Type: VariableTypeString, Default: "dev", EnvKey: "TC_ENVIRONMENT",
			Description: "Environment token used in resource names (dev, staging, prod).",
		},
		{
			Name: VarApiKey, Type: VariableTypeString, Sensitive: true, EnvKey: "TC_API_KEY",
			Description: "Key clients present to the count API.",
		},
		{
			Name: VarLogLevel, Type: VariableTypeString, Default: "INFO", EnvKey: "TC_LOG_LEVEL",
			Description: "Log level of the count API.",
		},
		{
			Name: VarPredictBackendBaseUrl, Type: VariableTypeString, EnvKey: "TC_PREDICT_BACKEND_BASE_URL",
			Description: "Base URL of the prediction backend.",
		},
		{
			Name: VarPredictBackendApiKey, Type: VariableTypeString, Sensitive: true,
			EnvKey:      "TC_PREDICT_BACKEND_API_KEY",
			Description: "Key of the prediction backend.",
		},
		{
			Name: VarImageTag, Type: VariableTypeString, Default: "latest", EnvKey: "TC_IMAGE_TAG",
			Description: "Tag of the image the web app runs.",
		},
		{
			Name: VarUseLegacyDatabase, Type: VariableTypeBool, Default: false, EnvKey: "TC_USE_LEGACY_DATABASE",
			Description: "Point the web app at the legacy Cosmos DB account instead of the new one.",
		},
		{
			Name: VarLegacyResourceGroupName, Type: VariableTypeString, Default: "", EnvKey: "TC_LEGACY_RESOURCE_GROUP",
			Description: "Resource group of the legacy accounts. Defaults to resource_group_name.",
		},
		{
			Name: VarLegacyCosmosAccountName, Type: VariableTypeString, Default: "", EnvKey: "TC_LEGACY_COSMOS_ACCOUNT",
			Description: "Name of the legacy Cosmos DB account.",
		},
		{
			Name: VarLegacyCosmosDatabaseName, Type: VariableTypeString, Default: "",
			EnvKey:      "TC_LEGACY_COSMOS_DATABASE",
			Description: "Name of the legacy Cosmos DB database.",
		},
		{
			Name: VarLegacyStorageAccountName, Type: VariableTypeString, EnvKey: "TC_LEGACY_STORAGE_ACCOUNT",
			Description: "Existing storage account holding the image blobs.",
		},
	}
}

// Values maps environment values onto the declared variables. Only variables with a value are returned; the
// engine applies defaults for the rest. Every missing required variable is reported.
func Values(variables []Variable, getenv func(string) string) (map[string]any, error) {
	values := map[string]any{}
	var err error

	for _, v := range variables {
		raw := getenv(v.EnvKey)
		if raw == "" {
			if v.Required() {
				err = multierr.Append(err, fmt.Errorf("variable '%s' is required, set %s", v.Name, v.EnvKey))
			}
			continue
		}

		switch v.Type {
		case VariableTypeBool:
			parsed, parseErr := strconv.ParseBool(raw)
			if parseErr != nil {
				err = multierr.Append(err, fmt.Errorf("variable '%s': %s is not a boolean: %w", v.Name, v.EnvKey, parseErr))
				continue
			}
			values[v.Name] = parsed
		default:
			values[v.Name] = raw
		}
	}

	if err != nil {
		return nil, err
	}

	return values, nil
}

// SensitiveValues returns the values of sensitive variables, used to redact command output.
func SensitiveValues(variables []Variable, values map[string]any) []string {
	var result []string
	for _, v := range variables {
		if !v.Sensitive {
			continue
		}

		if s, ok := values[v.Name].(string); ok && s != "" {
			result = append(result, s)
		}
	}

	return result
}
