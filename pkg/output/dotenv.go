// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"errors"
	"fmt"
	"io"

	"github.com/joho/godotenv"
)

type EnvVarsFormatter struct {
}

func (f *EnvVarsFormatter) Kind() Format {
	return EnvVarsFormat
}

// Format writes obj, which must be a map[string]string, in dotenv syntax sorted by key.
func (f *EnvVarsFormatter) Format(obj any, writer io.Writer) error {
	values, ok := obj.(map[string]string)
	if !ok {
		return errors.New("EnvVarsFormatter can only format objects of type map[string]string")
	}

	content, err := godotenv.Marshal(values)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(writer, content)
	return err
}

var _ Formatter = (*EnvVarsFormatter)(nil)
