// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpressions(t *testing.T) {
	require.Equal(t, "${var.location}", Var("location"))
	require.Equal(t, "${azurerm_service_plan.main.id}", Ref(PlanResource, "id"))
	require.Equal(t, "${a ? b : c}", Cond("a", "b", "c"))
	require.Equal(t, "data.x_y.z[0]", Index("data.x_y.z", 0))
}

func TestAddresses(t *testing.T) {
	addresses, err := Addresses("plain")
	require.NoError(t, err)
	require.Empty(t, addresses)

	addresses, err = Addresses("x${var.a}-${azurerm_b.c.id}")
	require.NoError(t, err)
	require.Equal(t, []string{"var.a", "azurerm_b.c"}, addresses)

	addresses, err = Addresses(`${lookup({a = 1}, var.k, 0)}`)
	require.NoError(t, err)
	require.Equal(t, []string{"var.k"}, addresses)

	addresses, err = Addresses("${data.azurerm_x.y[0].name} ${count.index} ${local.z}")
	require.NoError(t, err)
	require.Equal(t, []string{"data.azurerm_x.y"}, addresses)

	// escaped and quoted text is not an expression
	addresses, err = Addresses(`$${var.literal} ${"var.quoted"}`)
	require.NoError(t, err)
	require.Empty(t, addresses)

	_, err = Addresses("${unterminated")
	require.Error(t, err)
}
