// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/cosmos/armcosmos/v2"
)

// CosmosAccount describes the parts of a Cosmos DB account checked after provisioning.
type CosmosAccount struct {
	Name        string
	Endpoint    string
	Consistency string
	Serverless  bool
}

// CosmosContainer is a SQL container and its partition key paths.
type CosmosContainer struct {
	Name          string
	PartitionKeys []string
}

func (cli *AzureClient) GetCosmosAccount(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	accountName string,
) (*CosmosAccount, error) {
	credential, err := cli.credentialProvider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	client, err := armcosmos.NewDatabaseAccountsClient(subscriptionId, credential, cli.armClientOptions)
	if err != nil {
		return nil, fmt.Errorf("creating DatabaseAccounts client: %w", err)
	}

	account, err := client.Get(ctx, resourceGroup, accountName, nil)
	if err != nil {
		return nil, fmt.Errorf("getting cosmos account '%s': %w", accountName, err)
	}

	result := &CosmosAccount{Name: accountName}
	if props := account.Properties; props != nil {
		if props.DocumentEndpoint != nil {
			result.Endpoint = *props.DocumentEndpoint
		}

		if props.ConsistencyPolicy != nil && props.ConsistencyPolicy.DefaultConsistencyLevel != nil {
			result.Consistency = string(*props.ConsistencyPolicy.DefaultConsistencyLevel)
		}

		for _, capability := range props.Capabilities {
			if capability != nil && capability.Name != nil && *capability.Name == "EnableServerless" {
				result.Serverless = true
			}
		}
	}

	return result, nil
}

// ListCosmosContainers returns the SQL containers of a database, sorted by name.
func (cli *AzureClient) ListCosmosContainers(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	accountName string,
	databaseName string,
) ([]CosmosContainer, error) {
	credential, err := cli.credentialProvider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	client, err := armcosmos.NewSQLResourcesClient(subscriptionId, credential, cli.armClientOptions)
	if err != nil {
		return nil, fmt.Errorf("creating SQLResources client: %w", err)
	}

	containers := []CosmosContainer{}
	pager := client.NewListSQLContainersPager(resourceGroup, accountName, databaseName, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing containers of '%s/%s': %w", accountName, databaseName, err)
		}

		for _, item := range page.Value {
			if item == nil || item.Name == nil {
				continue
			}

			container := CosmosContainer{Name: *item.Name, PartitionKeys: []string{}}
			if item.Properties != nil && item.Properties.Resource != nil &&
				item.Properties.Resource.PartitionKey != nil {
				for _, path := range item.Properties.Resource.PartitionKey.Paths {
					if path != nil {
						container.PartitionKeys = append(container.PartitionKeys, *path)
					}
				}
			}

			containers = append(containers, container)
		}
	}

	sort.Slice(containers, func(i, j int) bool { return containers[i].Name < containers[j].Name })
	return containers, nil
}
