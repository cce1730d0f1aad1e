// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Expr wraps a raw Terraform expression into an interpolation string.
func Expr(expression string) string {
	return "${" + expression + "}"
}

// Attr is the raw expression reading an attribute of the block at address.
func Attr(address string, attribute string) string {
	return address + "." + attribute
}

// Ref is the interpolation of an attribute of the block at address.
func Ref(address string, attribute string) string {
	return Expr(Attr(address, attribute))
}

// Var is the interpolation of an input variable.
func Var(name string) string {
	return Expr("var." + name)
}

// Cond is the interpolation of a conditional between two raw expressions.
func Cond(condition string, whenTrue string, whenFalse string) string {
	return Expr(fmt.Sprintf("%s ? %s : %s", condition, whenTrue, whenFalse))
}

// Index addresses one instance of a counted block.
func Index(address string, index int) string {
	return fmt.Sprintf("%s[%d]", address, index)
}

// Addresses returns the variables, data sources and resources read by the template value, in order of
// appearance. Attribute and index steps are dropped; locals and built-ins such as count are skipped.
func Addresses(value string) ([]string, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(value), "", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}

	var result []string
	for _, traversal := range expr.Variables() {
		if address, ok := traversalAddress(traversal); ok {
			result = append(result, address)
		}
	}

	return result, nil
}

func traversalAddress(traversal hcl.Traversal) (string, bool) {
	names := []string{traversal.RootName()}
	for _, step := range traversal[1:] {
		attr, ok := step.(hcl.TraverseAttr)
		if !ok {
			break
		}
		names = append(names, attr.Name)
	}

	switch {
	case names[0] == "var" && len(names) >= 2:
		return strings.Join(names[:2], "."), true
	case names[0] == "data" && len(names) >= 3:
		return strings.Join(names[:3], "."), true
	// resource types carry their provider prefix
	case strings.Contains(names[0], "_") && len(names) >= 2:
		return strings.Join(names[:2], "."), true
	}

	return "", false
}
