// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package output

import (
	"context"
	"fmt"
	"io"

	"github.com/mattn/go-colorable"
)

type Format string

const (
	EnvVarsFormat Format = "dotenv"
	JsonFormat    Format = "json"
	NoneFormat    Format = "none"
)

// SupportedFormats lists the values accepted by --output.
var SupportedFormats = []Format{NoneFormat, JsonFormat, EnvVarsFormat}

type Formatter interface {
	Kind() Format
	Format(obj any, writer io.Writer) error
}

func NewFormatter(format string) (Formatter, error) {
	switch format {
	case string(JsonFormat):
		return &JsonFormatter{}, nil
	case string(EnvVarsFormat):
		return &EnvVarsFormatter{}, nil
	case string(NoneFormat), "":
		return &NoneFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format %v", format)
	}
}

type contextKey string

const (
	formatterContextKey      contextKey = "formatter"
	writerContextKey         contextKey = "writer"
	progressWriterContextKey contextKey = "progressWriter"
)

func WithFormatter(ctx context.Context, formatter Formatter) context.Context {
	return context.WithValue(ctx, formatterContextKey, formatter)
}

func GetFormatter(ctx context.Context) Formatter {
	formatter, ok := ctx.Value(formatterContextKey).(Formatter)
	if !ok {
		return &NoneFormatter{}
	}

	return formatter
}

func WithWriter(ctx context.Context, writer io.Writer) context.Context {
	return context.WithValue(ctx, writerContextKey, writer)
}

func GetWriter(ctx context.Context) io.Writer {
	writer, ok := ctx.Value(writerContextKey).(io.Writer)
	if !ok {
		return colorable.NewColorableStdout()
	}

	return writer
}

// WithProgressWriter sets where step lines and the output of external tools go. Formatted results keep the writer.
func WithProgressWriter(ctx context.Context, writer io.Writer) context.Context {
	return context.WithValue(ctx, progressWriterContextKey, writer)
}

// GetProgressWriter returns the progress writer, or the writer when none was set.
func GetProgressWriter(ctx context.Context) io.Writer {
	if writer, ok := ctx.Value(progressWriterContextKey).(io.Writer); ok {
		return writer
	}

	return GetWriter(ctx)
}

// NoneFormatter is used when the command prints human readable text itself.
type NoneFormatter struct{}

func (f *NoneFormatter) Kind() Format {
	return NoneFormat
}

func (f *NoneFormatter) Format(obj any, writer io.Writer) error {
	return fmt.Errorf("output format 'none' cannot format values")
}

var _ Formatter = (*NoneFormatter)(nil)
