// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerregistry/armcontainerregistry"
)

// RegistryCredentials are the admin credentials of a container registry.
type RegistryCredentials struct {
	LoginServer string
	Username    string
	Password    string
}

var ErrNoRegistryPassword = errors.New("container registry has no admin password, is the admin user enabled?")

// GetRegistryLoginServer returns the login server (e.g. "name.azurecr.io") of the registry.
func (cli *AzureClient) GetRegistryLoginServer(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	registryName string,
) (string, error) {
	client, err := cli.createRegistriesClient(ctx, subscriptionId)
	if err != nil {
		return "", err
	}

	registry, err := client.Get(ctx, resourceGroup, registryName, nil)
	if err != nil {
		return "", fmt.Errorf("getting container registry '%s': %w", registryName, err)
	}

	if registry.Properties == nil || registry.Properties.LoginServer == nil {
		return "", fmt.Errorf("container registry '%s' has no login server", registryName)
	}

	return *registry.Properties.LoginServer, nil
}

// GetRegistryCredentials returns the admin credentials used for docker login.
func (cli *AzureClient) GetRegistryCredentials(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	registryName string,
) (*RegistryCredentials, error) {
	loginServer, err := cli.GetRegistryLoginServer(ctx, subscriptionId, resourceGroup, registryName)
	if err != nil {
		return nil, err
	}

	client, err := cli.createRegistriesClient(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}

	credentials, err := client.ListCredentials(ctx, resourceGroup, registryName, nil)
	if err != nil {
		return nil, fmt.Errorf("getting container registry credentials: %w", err)
	}

	if credentials.Username == nil || len(credentials.Passwords) == 0 || credentials.Passwords[0].Value == nil {
		return nil, ErrNoRegistryPassword
	}

	return &RegistryCredentials{
		LoginServer: loginServer,
		Username:    *credentials.Username,
		Password:    *credentials.Passwords[0].Value,
	}, nil
}

func (cli *AzureClient) createRegistriesClient(
	ctx context.Context,
	subscriptionId string,
) (*armcontainerregistry.RegistriesClient, error) {
	credential, err := cli.credentialProvider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	client, err := armcontainerregistry.NewRegistriesClient(subscriptionId, credential, cli.armClientOptions)
	if err != nil {
		return nil, fmt.Errorf("creating Registries client: %w", err)
	}

	return client, nil
}
