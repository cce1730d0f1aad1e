// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// SecretReferencePrefix marks environment values that reference a Key Vault secret: akvs://<vault>/<secret>.
const SecretReferencePrefix = "akvs://"

var ErrInvalidSecretReference = errors.New("invalid key vault secret reference")

// SecretReference points at one Key Vault secret.
type SecretReference struct {
	Vault  string
	Secret string
}

// IsSecretReference reports whether value is an akvs:// reference.
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, SecretReferencePrefix)
}

// ParseSecretReference parses akvs://<vault>/<secret>.
func ParseSecretReference(value string) (SecretReference, error) {
	if !IsSecretReference(value) {
		return SecretReference{}, fmt.Errorf("%w: '%s' does not start with %s",
			ErrInvalidSecretReference, value, SecretReferencePrefix)
	}

	vault, secret, found := strings.Cut(strings.TrimPrefix(value, SecretReferencePrefix), "/")
	if !found || vault == "" || secret == "" || strings.Contains(secret, "/") {
		return SecretReference{}, fmt.Errorf("%w: '%s' must be %s<vault>/<secret>",
			ErrInvalidSecretReference, value, SecretReferencePrefix)
	}

	return SecretReference{Vault: vault, Secret: secret}, nil
}

// SecretGetter reads the current version of a secret.
type SecretGetter interface {
	GetSecret(ctx context.Context, vault string, secret string) (string, error)
}

// SecretResolver replaces akvs:// references with the secret value. Other values are returned unchanged.
type SecretResolver struct {
	getter SecretGetter

	mu    sync.Mutex
	cache map[SecretReference]string
}

func NewSecretResolver(getter SecretGetter) *SecretResolver {
	return &SecretResolver{
		getter: getter,
		cache:  map[SecretReference]string{},
	}
}

func (r *SecretResolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsSecretReference(value) {
		return value, nil
	}

	ref, err := ParseSecretReference(value)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	cached, has := r.cache[ref]
	r.mu.Unlock()
	if has {
		return cached, nil
	}

	secret, err := r.getter.GetSecret(ctx, ref.Vault, ref.Secret)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.cache[ref] = secret
	r.mu.Unlock()

	return secret, nil
}

// KeyVaultSecrets reads secrets with the Key Vault data plane API.
type KeyVaultSecrets struct {
	credentialProvider CredentialProvider
	clientOptions      *azcore.ClientOptions
}

func NewKeyVaultSecrets(credentialProvider CredentialProvider, clientOptions *azcore.ClientOptions) *KeyVaultSecrets {
	return &KeyVaultSecrets{
		credentialProvider: credentialProvider,
		clientOptions:      clientOptions,
	}
}

func (k *KeyVaultSecrets) GetSecret(ctx context.Context, vault string, secret string) (string, error) {
	credential, err := k.credentialProvider.Credential(ctx)
	if err != nil {
		return "", err
	}

	options := &azsecrets.ClientOptions{}
	if k.clientOptions != nil {
		options.ClientOptions = *k.clientOptions
	}

	client, err := azsecrets.NewClient(fmt.Sprintf("https://%s.vault.azure.net", vault), credential, options)
	if err != nil {
		return "", fmt.Errorf("creating keyvault client: %w", err)
	}

	response, err := client.GetSecret(ctx, secret, "", nil)
	if err != nil {
		return "", fmt.Errorf("getting secret '%s' from vault '%s': %w", secret, vault, err)
	}

	if response.Value == nil {
		return "", fmt.Errorf("secret '%s' in vault '%s' has no value", secret, vault)
	}

	return *response.Value, nil
}
