// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSecretGetter struct {
	calls   int
	secrets map[string]string
}

func (f *fakeSecretGetter) GetSecret(ctx context.Context, vault string, secret string) (string, error) {
	f.calls++
	value, has := f.secrets[vault+"/"+secret]
	if !has {
		return "", errors.New("secret not found")
	}
	return value, nil
}

func TestParseSecretReference(t *testing.T) {
	ref, err := ParseSecretReference("akvs://tc-vault/api-key")
	require.NoError(t, err)
	require.Equal(t, SecretReference{Vault: "tc-vault", Secret: "api-key"}, ref)

	for _, invalid := range []string{"plain", "akvs://", "akvs://vault", "akvs://vault/", "akvs:///secret", "akvs://v/a/b"} {
		_, err := ParseSecretReference(invalid)
		require.ErrorIs(t, err, ErrInvalidSecretReference, invalid)
	}
}

func TestSecretResolver(t *testing.T) {
	getter := &fakeSecretGetter{secrets: map[string]string{"tc-vault/api-key": "s3cret"}}
	resolver := NewSecretResolver(getter)
	ctx := context.Background()

	value, err := resolver.Resolve(ctx, "plain value")
	require.NoError(t, err)
	require.Equal(t, "plain value", value)

	for i := 0; i < 2; i++ {
		value, err = resolver.Resolve(ctx, "akvs://tc-vault/api-key")
		require.NoError(t, err)
		require.Equal(t, "s3cret", value)
	}
	require.Equal(t, 1, getter.calls)

	_, err = resolver.Resolve(ctx, "akvs://tc-vault/missing")
	require.Error(t, err)
}
