// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package azapi wraps the Azure management and data plane SDKs used after provisioning: registry credentials,
// web app restarts, configuration checks, remote state containers and Key Vault references.
package azapi

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
)

type AzureClient struct {
	credentialProvider CredentialProvider
	armClientOptions   *arm.ClientOptions
	coreClientOptions  *azcore.ClientOptions
}

func NewAzureClient(
	credentialProvider CredentialProvider,
	armClientOptions *arm.ClientOptions,
	coreClientOptions *azcore.ClientOptions,
) *AzureClient {
	return &AzureClient{
		credentialProvider: credentialProvider,
		armClientOptions:   armClientOptions,
		coreClientOptions:  coreClientOptions,
	}
}
