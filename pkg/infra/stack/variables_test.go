// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func requiredEnv() map[string]string {
	return map[string]string{
		"AZURE_SUBSCRIPTION_ID":       "00000000-0000-0000-0000-000000000000",
		"AZURE_RESOURCE_GROUP":        "rg-acme-dev",
		"TC_CUSTOMER":                 "acme",
		"TC_API_KEY":                  "api-secret",
		"TC_PREDICT_BACKEND_BASE_URL": "https://predict.example.com",
		"TC_PREDICT_BACKEND_API_KEY":  "predict-secret",
		"TC_LEGACY_STORAGE_ACCOUNT":   "acmelegacy",
	}
}

func TestValues(t *testing.T) {
	env := requiredEnv()
	env["TC_USE_LEGACY_DATABASE"] = "true"

	values, err := Values(Variables(), func(key string) string { return env[key] })
	require.NoError(t, err)

	require.Equal(t, "acme", values[VarCustomer])
	require.Equal(t, true, values[VarUseLegacyDatabase])
	require.NotContains(t, values, VarLocation)

	require.ElementsMatch(t, []string{"api-secret", "predict-secret"}, SensitiveValues(Variables(), values))
}

func TestValuesReportsEveryMissingVariable(t *testing.T) {
	env := requiredEnv()
	delete(env, "TC_CUSTOMER")
	delete(env, "TC_API_KEY")
	env["TC_USE_LEGACY_DATABASE"] = "maybe"

	_, err := Values(Variables(), func(key string) string { return env[key] })
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 3)
	require.ErrorContains(t, err, "variable 'customer' is required, set TC_CUSTOMER")
}

func TestVariableNamesAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, v := range Variables() {
		require.False(t, seen[v.Name], v.Name)
		seen[v.Name] = true
		require.NotEmpty(t, v.EnvKey)
	}
}
