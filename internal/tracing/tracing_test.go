// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartWritesSpans(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "trace.json")

	shutdown, err := Start(traceFile)
	require.NoError(t, err)

	ctx, span := StartSpan(context.Background(), "pipeline.provision", StepKey.String("provision"))
	require.NotEmpty(t, Environ(ctx))
	EndSpan(span, errors.New("boom"))

	require.NoError(t, shutdown(context.Background()))

	contents, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	require.Contains(t, string(contents), "pipeline.provision")
	require.Contains(t, string(contents), "boom")
}

func TestContextFromEnvRoundTrip(t *testing.T) {
	parent := "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	t.Setenv(traceparentEnv, parent)

	shutdown, err := Start("")
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	ctx := ContextFromEnv(context.Background())
	environ := Environ(ctx)
	require.Len(t, environ, 1)
	require.True(t, strings.HasPrefix(environ[0], traceparentEnv+"=00-0af7651916cd43dd8448eb211c80319c-"))
}
