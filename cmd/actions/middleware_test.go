// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package actions

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/internal"
	"github.com/tensora/tcinfra/pkg/output"
)

func TestRunWithMiddlewareOrder(t *testing.T) {
	var calls []string
	record := func(name string) MiddlewareFn {
		return func(ctx context.Context, options *ActionOptions, next NextFn) (*ActionResult, error) {
			calls = append(calls, name+":"+options.Name)
			return next(ctx)
		}
	}

	action := ActionFunc(func(ctx context.Context) (*ActionResult, error) {
		calls = append(calls, "action")
		return &ActionResult{Message: &ResultMessage{Header: "done"}}, nil
	})

	result, err := RunWithMiddleware(
		context.Background(), &ActionOptions{Name: "up"}, action, []MiddlewareFn{record("first"), record("second")})
	require.NoError(t, err)
	require.Equal(t, "done", result.Message.Header)
	require.Equal(t, []string{"first:up", "second:up", "action"}, calls)
}

func TestRunWithMiddlewareError(t *testing.T) {
	boom := errors.New("boom")
	action := ActionFunc(func(ctx context.Context) (*ActionResult, error) {
		return nil, boom
	})

	_, err := RunWithMiddleware(context.Background(), &ActionOptions{Name: "deploy"}, action, DefaultMiddleware(&internal.GlobalCommandOptions{}))
	require.ErrorIs(t, err, boom)
}

type contextKey string

func TestMiddlewareContextReachesAction(t *testing.T) {
	inject := func(ctx context.Context, options *ActionOptions, next NextFn) (*ActionResult, error) {
		return next(context.WithValue(ctx, contextKey("k"), "v"))
	}

	action := ActionFunc(func(ctx context.Context) (*ActionResult, error) {
		require.Equal(t, "v", ctx.Value(contextKey("k")))
		return nil, nil
	})

	_, err := RunWithMiddleware(context.Background(), &ActionOptions{Name: "show"}, action, []MiddlewareFn{inject})
	require.NoError(t, err)
}

func TestQueryMiddleware(t *testing.T) {
	buf := &bytes.Buffer{}
	action := ActionFunc(func(ctx context.Context) (*ActionResult, error) {
		value := map[string]any{"env": "dev", "outputs": map[string]any{"web_app_name": "tensora-acme-dev-count-api"}}
		return nil, output.GetFormatter(ctx).Format(value, buf)
	})

	ctx := output.WithFormatter(context.Background(), &output.JsonFormatter{})
	_, err := RunWithMiddleware(ctx, &ActionOptions{Name: "show"}, action,
		[]MiddlewareFn{NewQueryMiddleware("outputs.web_app_name")})
	require.NoError(t, err)
	require.Equal(t, "\"tensora-acme-dev-count-api\"\n", buf.String())

	ctx = output.WithFormatter(context.Background(), &output.NoneFormatter{})
	_, err = RunWithMiddleware(ctx, &ActionOptions{Name: "show"}, action,
		[]MiddlewareFn{NewQueryMiddleware("env")})
	var suggestion *internal.ErrorWithSuggestion
	require.ErrorAs(t, err, &suggestion)
}
