// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package actions

import (
	"context"
	"log"

	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/internal/tracing"
	"github.com/tensora/tcinfra/pkg/output"
)

// ActionOptions describe the command an action runs for.
type ActionOptions struct {
	// Name is the full command path, e.g. "env new".
	Name string
}

// Executes the next middleware in the command chain
type NextFn func(ctx context.Context) (*ActionResult, error)

// An action middleware function to execute
type MiddlewareFn func(ctx context.Context, options *ActionOptions, next NextFn) (*ActionResult, error)

// Executes the middleware chain for the specified action
func RunWithMiddleware(
	ctx context.Context,
	options *ActionOptions,
	action Action,
	chain []MiddlewareFn,
) (*ActionResult, error) {
	chainLength := len(chain)
	index := 0

	var nextFn NextFn

	nextFn = func(nextContext context.Context) (*ActionResult, error) {
		if index < chainLength {
			middlewareFn := chain[index]
			index++
			return middlewareFn(nextContext, options, nextFn)
		} else {
			return action.Run(nextContext)
		}
	}

	return nextFn(ctx)
}

// TracingMiddleware wraps the command in a span named after it.
func TracingMiddleware(ctx context.Context, options *ActionOptions, next NextFn) (*ActionResult, error) {
	ctx, span := tracing.StartSpan(tracing.ContextFromEnv(ctx), "cmd."+options.Name)
	result, err := next(ctx)
	tracing.EndSpan(span, err)

	if err != nil && span.SpanContext().HasTraceID() {
		err = &internal.ErrorWithTraceId{TraceId: span.SpanContext().TraceID().String(), Err: err}
	}
	return result, err
}

// DebugMiddleware logs the start and the outcome of every command.
func DebugMiddleware(ctx context.Context, options *ActionOptions, next NextFn) (*ActionResult, error) {
	log.Printf("running command '%s'", options.Name)
	result, err := next(ctx)
	if err != nil {
		log.Printf("command '%s' failed: %v", options.Name, err)
	}
	return result, err
}

// NewQueryMiddleware filters the formatted result of the command with a JMESPath query. An empty query is a no-op.
func NewQueryMiddleware(query string) MiddlewareFn {
	return func(ctx context.Context, options *ActionOptions, next NextFn) (*ActionResult, error) {
		if query == "" {
			return next(ctx)
		}

		formatter, err := output.NewQueryFormatter(output.GetFormatter(ctx), query)
		if err != nil {
			return nil, &internal.ErrorWithSuggestion{
				Err:        err,
				Suggestion: "Run the command with " + output.WithBackticks("--output json") + " to use --query.",
			}
		}

		return next(output.WithFormatter(ctx, formatter))
	}
}

// DefaultMiddleware is the chain every command runs through.
func DefaultMiddleware(global *internal.GlobalCommandOptions) []MiddlewareFn {
	return []MiddlewareFn{DebugMiddleware, TracingMiddleware, NewQueryMiddleware(global.Query)}
}
