// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"fmt"
	"log"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
)

// RestartWebApp restarts the web app and waits for the restart to complete, so the app pulls its image again.
func (cli *AzureClient) RestartWebApp(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	appName string,
) error {
	client, err := cli.createWebAppsClient(ctx, subscriptionId)
	if err != nil {
		return err
	}

	log.Printf("restarting webapp %s/%s", resourceGroup, appName)
	_, err = client.Restart(ctx, resourceGroup, appName, &armappservice.WebAppsClientRestartOptions{
		SoftRestart: to.Ptr(false),
		Synchronous: to.Ptr(true),
	})
	if err != nil {
		return fmt.Errorf("restarting webapp '%s': %w", appName, err)
	}

	return nil
}

// GetWebAppHostName returns the default host name of the web app.
func (cli *AzureClient) GetWebAppHostName(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	appName string,
) (string, error) {
	client, err := cli.createWebAppsClient(ctx, subscriptionId)
	if err != nil {
		return "", err
	}

	webApp, err := client.Get(ctx, resourceGroup, appName, nil)
	if err != nil {
		return "", fmt.Errorf("failed retrieving webapp properties: %w", err)
	}

	if webApp.Properties == nil || webApp.Properties.DefaultHostName == nil {
		return "", fmt.Errorf("webapp '%s' has no default host name", appName)
	}

	return *webApp.Properties.DefaultHostName, nil
}

// GetWebAppHealthCheckPath returns the health check path configured on the web app, or an empty string.
func (cli *AzureClient) GetWebAppHealthCheckPath(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	appName string,
) (string, error) {
	client, err := cli.createWebAppsClient(ctx, subscriptionId)
	if err != nil {
		return "", err
	}

	config, err := client.GetConfiguration(ctx, resourceGroup, appName, nil)
	if err != nil {
		return "", fmt.Errorf("failed retrieving webapp configuration: %w", err)
	}

	if config.Properties == nil || config.Properties.HealthCheckPath == nil {
		return "", nil
	}

	return *config.Properties.HealthCheckPath, nil
}

func (cli *AzureClient) createWebAppsClient(
	ctx context.Context,
	subscriptionId string,
) (*armappservice.WebAppsClient, error) {
	credential, err := cli.credentialProvider.Credential(ctx)
	if err != nil {
		return nil, err
	}

	client, err := armappservice.NewWebAppsClient(subscriptionId, credential, cli.armClientOptions)
	if err != nil {
		return nil, fmt.Errorf("creating WebApps client: %w", err)
	}

	return client, nil
}
