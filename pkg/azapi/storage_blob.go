// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"fmt"
	"log"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const DefaultBlobEndpoint = "blob.core.windows.net"

// BlobContainers creates blob containers with the data plane API.
type BlobContainers struct {
	credentialProvider CredentialProvider
	clientOptions      *azcore.ClientOptions
	endpoint           string
}

func NewBlobContainers(credentialProvider CredentialProvider, clientOptions *azcore.ClientOptions) *BlobContainers {
	return &BlobContainers{
		credentialProvider: credentialProvider,
		clientOptions:      clientOptions,
		endpoint:           DefaultBlobEndpoint,
	}
}

// EnsureContainer creates the container if it does not exist yet.
func (b *BlobContainers) EnsureContainer(ctx context.Context, storageAccount string, container string) error {
	client, err := b.createClient(ctx, storageAccount)
	if err != nil {
		return err
	}

	_, err = client.CreateContainer(ctx, container, nil)
	if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		log.Printf("container '%s' already exists in '%s'", container, storageAccount)
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to create container '%s': %w", container, err)
	}

	log.Printf("created container '%s' in '%s'", container, storageAccount)
	return nil
}

func (b *BlobContainers) createClient(ctx context.Context, storageAccount string) (*azblob.Client, error) {
	credential, err := b.credentialProvider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	blobOptions := &azblob.ClientOptions{}
	if b.clientOptions != nil {
		blobOptions.ClientOptions = *b.clientOptions
	}

	serviceUrl := fmt.Sprintf("https://%s.%s", storageAccount, b.endpoint)
	client, err := azblob.NewClient(serviceUrl, credential, blobOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client, %w", err)
	}

	return client, nil
}
