// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmespath/go-jmespath"
)

// QueryFormatter applies a JMESPath query to every value before the inner formatter writes it.
type QueryFormatter struct {
	inner Formatter
	query *jmespath.JMESPath
}

// NewQueryFormatter compiles query. Only json output can carry the result of an arbitrary query.
func NewQueryFormatter(inner Formatter, query string) (*QueryFormatter, error) {
	if inner.Kind() != JsonFormat {
		return nil, fmt.Errorf("--query requires --output %s", JsonFormat)
	}

	compiled, err := jmespath.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath query '%s': %w", query, err)
	}

	return &QueryFormatter{inner: inner, query: compiled}, nil
}

func (f *QueryFormatter) Kind() Format {
	return f.inner.Kind()
}

func (f *QueryFormatter) Format(obj any, writer io.Writer) error {
	// the query works on the json shape of obj, so field tags apply
	raw, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshalling result: %w", err)
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshalling result: %w", err)
	}

	filtered, err := f.query.Search(data)
	if err != nil {
		return fmt.Errorf("applying JMESPath query: %w", err)
	}

	return f.inner.Format(filtered, writer)
}

var _ Formatter = (*QueryFormatter)(nil)
