// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/tensora/tcinfra/pkg/osutil"
	"gopkg.in/yaml.v3"
)

const schemaUrl = "https://github.com/tensora/tcinfra/tcinfra.schema.json"

// Schema describes tcinfra.yaml. It is reflected from ProjectConfig, so the file and the struct cannot drift.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Anonymous:                  true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case reflect.TypeFor[Duration]():
				return &jsonschema.Schema{Type: "string", Pattern: `^(0|([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+)$`}
			case reflect.TypeFor[osutil.ExpandableString]():
				return &jsonschema.Schema{Type: "string"}
			}
			return nil
		},
	}

	schema := reflector.Reflect(&ProjectConfig{})
	schema.Title = "tcinfra.yaml"
	return schema
}

var compiledSchema = sync.OnceValues(func() (*validator.Schema, error) {
	raw, err := json.Marshal(Schema())
	if err != nil {
		return nil, fmt.Errorf("marshalling schema: %w", err)
	}

	doc, err := validator.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	compiler := validator.NewCompiler()
	if err := compiler.AddResource(schemaUrl, doc); err != nil {
		return nil, err
	}

	return compiler.Compile(schemaUrl)
})

// validateSchema checks the yaml document against Schema before it is decoded.
func validateSchema(yamlContent []byte) error {
	var yamlData any
	if err := yaml.Unmarshal(yamlContent, &yamlData); err != nil {
		return err
	}

	jsonBytes, err := json.Marshal(withoutNulls(yamlData))
	if err != nil {
		return fmt.Errorf("converting tcinfra.yaml to json: %w", err)
	}

	jsonObj, err := validator.UnmarshalJSON(bytes.NewReader(jsonBytes))
	if err != nil {
		return err
	}

	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	return schema.Validate(jsonObj)
}

// withoutNulls drops empty keys, which decode to their zero value.
func withoutNulls(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			if item != nil {
				result[key] = withoutNulls(item)
			}
		}
		return result
	case []any:
		for i, item := range v {
			v[i] = withoutNulls(item)
		}
		return v
	default:
		return value
	}
}
