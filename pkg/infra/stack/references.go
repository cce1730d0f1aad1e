// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
)

// Reference is one symbol read inside an interpolation.
type Reference struct {
	// From is the address of the block or output holding the expression.
	From string
	// Address is the referenced variable, data source or resource (without attribute and index).
	Address string
}

// References lists every symbol referenced by data sources, resources and outputs, in declaration order. Values
// that are not valid templates are reported together.
func References(s *Stack) ([]Reference, error) {
	var refs []Reference
	var err error
	collect := func(from string, value any) {
		walkStrings(value, func(str string) {
			addresses, parseErr := Addresses(str)
			if parseErr != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", from, parseErr))
				return
			}

			for _, address := range addresses {
				refs = append(refs, Reference{From: from, Address: address})
			}
		})
	}

	for _, d := range s.DataSources {
		collect(d.DataAddress(), d.Attributes)
	}
	for _, r := range s.Resources {
		collect(r.Address(), r.Attributes)
	}
	for _, o := range s.Outputs {
		collect("output."+o.Name, o.Value)
	}

	return refs, err
}

// CheckReferences reports every reference that does not resolve to a declared variable, data source or resource.
func CheckReferences(s *Stack) error {
	declared := map[string]bool{}
	for _, v := range s.Variables {
		declared["var."+v.Name] = true
	}
	for _, d := range s.DataSources {
		declared[d.DataAddress()] = true
	}
	for _, r := range s.Resources {
		declared[r.Address()] = true
	}

	refs, err := References(s)
	reported := map[Reference]bool{}
	for _, ref := range refs {
		if declared[ref.Address] || reported[ref] {
			continue
		}

		reported[ref] = true
		err = multierr.Append(err, fmt.Errorf("%s references undeclared '%s'", ref.From, ref.Address))
	}

	return err
}

func walkStrings(value any, visit func(string)) {
	switch v := value.(type) {
	case string:
		visit(v)
	case []string:
		for _, s := range v {
			visit(s)
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkStrings(v[k], visit)
		}
	case []map[string]any:
		for _, m := range v {
			walkStrings(m, visit)
		}
	case []any:
		for _, item := range v {
			walkStrings(item, visit)
		}
	}
}
