// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package osutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestExpandableStringYaml(t *testing.T) {
	var e ExpandableString

	err := yaml.Unmarshal([]byte(`"tensora-${CUSTOMER}-${ENVIRONMENT}-plan"`), &e)
	require.NoError(t, err)
	require.Equal(t, "tensora-${CUSTOMER}-${ENVIRONMENT}-plan", e.Template)

	marshalled, err := yaml.Marshal(e)
	require.NoError(t, err)

	var roundTrip ExpandableString
	require.NoError(t, yaml.Unmarshal(marshalled, &roundTrip))
	require.Equal(t, e, roundTrip)
}

func TestExpandableStringEnvsubst(t *testing.T) {
	values := map[string]string{
		"CUSTOMER":    "acme",
		"ENVIRONMENT": "dev",
	}
	e := NewExpandableString("tensora-${CUSTOMER}-${ENVIRONMENT}-plan")

	res, err := e.Envsubst(func(name string) string { return values[name] })
	require.NoError(t, err)
	require.Equal(t, "tensora-acme-dev-plan", res)

	require.False(t, e.Empty())
	require.True(t, ExpandableString{}.Empty())

	bad := NewExpandableString("${CUSTOMER")
	_, err = bad.Envsubst(func(name string) string { return values[name] })
	require.Error(t, err)
}
