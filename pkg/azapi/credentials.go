// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	ClientIdEnvVarName     = "AZURE_CLIENT_ID"
	ClientSecretEnvVarName = "AZURE_CLIENT_SECRET"
	TenantIdEnvVarName     = "AZURE_TENANT_ID"
)

// CredentialProvider provides the [azcore.TokenCredential] used for every Azure request.
type CredentialProvider interface {
	Credential(ctx context.Context) (azcore.TokenCredential, error)
}

// NewCredentialProvider authenticates as the service principal described by AZURE_CLIENT_ID, AZURE_CLIENT_SECRET
// and AZURE_TENANT_ID, and falls back to the default Azure credential chain (environment, workload identity,
// managed identity, az CLI) when any of them is missing.
func NewCredentialProvider(getenv func(string) string, options *azcore.ClientOptions) CredentialProvider {
	return &credentialProvider{getenv: getenv, options: options}
}

type credentialProvider struct {
	getenv  func(string) string
	options *azcore.ClientOptions

	once       sync.Once
	credential azcore.TokenCredential
	err        error
}

func (p *credentialProvider) Credential(ctx context.Context) (azcore.TokenCredential, error) {
	p.once.Do(func() {
		p.credential, p.err = p.create()
	})

	return p.credential, p.err
}

func (p *credentialProvider) create() (azcore.TokenCredential, error) {
	clientOptions := azcore.ClientOptions{}
	if p.options != nil {
		clientOptions = *p.options
	}

	clientId := p.getenv(ClientIdEnvVarName)
	clientSecret := p.getenv(ClientSecretEnvVarName)
	tenantId := p.getenv(TenantIdEnvVarName)

	if clientId != "" && clientSecret != "" && tenantId != "" {
		log.Printf("authenticating as service principal %s", clientId)
		credential, err := azidentity.NewClientSecretCredential(tenantId, clientId, clientSecret,
			&azidentity.ClientSecretCredentialOptions{ClientOptions: clientOptions})
		if err != nil {
			return nil, fmt.Errorf("creating service principal credential: %w", err)
		}

		return credential, nil
	}

	log.Printf("authenticating with the default azure credential")
	credential, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		ClientOptions: clientOptions,
		TenantID:      tenantId,
	})
	if err != nil {
		return nil, fmt.Errorf("creating default azure credential: %w", err)
	}

	return credential, nil
}

// StaticCredentialProvider always returns the same credential.
type StaticCredentialProvider struct {
	TokenCredential azcore.TokenCredential
}

func (p *StaticCredentialProvider) Credential(ctx context.Context) (azcore.TokenCredential, error) {
	return p.TokenCredential, nil
}
