// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package tracing configures OpenTelemetry for tcinfra. Spans are only exported when a trace log file is requested.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/osutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

const instrumentationName = "github.com/tensora/tcinfra"

// Attribute keys attached to spans.
const (
	EnvironmentKey = attribute.Key("tc.environment")
	StepKey        = attribute.Key("tc.pipeline.step")
	RunIdKey       = attribute.Key("tc.run.id")
	CheckKey       = attribute.Key("tc.verify.check")
)

// ShutdownFn flushes pending spans and releases the exporter.
type ShutdownFn func(ctx context.Context) error

// Start sets the global tracer provider. When traceFile is empty spans are recorded but never exported.
func Start(traceFile string) (ShutdownFn, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", "tcinfra"),
		attribute.String("service.version", internal.GetVersionNumber()),
	)

	options := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	var file io.Closer
	if traceFile != "" {
		f, err := os.OpenFile(traceFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, osutil.PermissionFile)
		if err != nil {
			return nil, fmt.Errorf("opening trace log file: %w", err)
		}
		file = f

		exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}

		options = append(options, sdktrace.WithSyncer(exporter))
	}

	provider := sdktrace.NewTracerProvider(options...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		if file != nil {
			err = multierr.Append(err, file.Close())
		}
		return err
	}, nil
}

// StartSpan starts a span from the global tracer provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
