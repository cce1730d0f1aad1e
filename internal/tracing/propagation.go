// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tracing

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/propagation"
)

const (
	traceparentKey = "traceparent"
	tracestateKey  = "tracestate"

	traceparentEnv = "TRACEPARENT"
	tracestateEnv  = "TRACESTATE"
)

// ContextFromEnv continues a trace started by the caller, e.g. a CI job, through TRACEPARENT.
func ContextFromEnv(ctx context.Context) context.Context {
	parent := os.Getenv(traceparentEnv)
	state := os.Getenv(tracestateEnv)

	if parent != "" {
		tc := propagation.TraceContext{}
		return tc.Extract(ctx, propagation.MapCarrier{
			traceparentKey: parent,
			tracestateKey:  state})
	}

	return ctx
}

// Environ returns the variables that let a child process continue the trace in ctx.
func Environ(ctx context.Context) []string {
	tm := propagation.MapCarrier{}
	tc := propagation.TraceContext{}
	tc.Inject(ctx, &tm)

	if parent := tm.Get(traceparentKey); parent != "" {
		environ := []string{
			traceparentEnv + "=" + parent,
		}

		if state := tm.Get(tracestateKey); state != "" {
			environ = append(environ, tracestateEnv+"="+state)
		}
		return environ
	}

	return nil
}
