// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// ResourceGroupExists reports whether the resource group exists in the subscription.
func (cli *AzureClient) ResourceGroupExists(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
) (bool, error) {
	credential, err := cli.credentialProvider.Credential(ctx)
	if err != nil {
		return false, err
	}

	client, err := armresources.NewResourceGroupsClient(subscriptionId, credential, cli.armClientOptions)
	if err != nil {
		return false, fmt.Errorf("creating ResourceGroups client: %w", err)
	}

	response, err := client.CheckExistence(ctx, resourceGroup, nil)
	if err != nil {
		return false, fmt.Errorf("checking resource group '%s': %w", resourceGroup, err)
	}

	return response.Success, nil
}
