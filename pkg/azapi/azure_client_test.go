// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azapi

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/pkg/azsdk"
	"github.com/tensora/tcinfra/test/mocks"
	"github.com/tensora/tcinfra/test/mocks/mockhttp"
)

const (
	testSubscription  = "00000000-0000-0000-0000-000000000001"
	testResourceGroup = "rg-acme-dev"
)

func newTestClient(httpClient *mockhttp.MockHttpClient) *AzureClient {
	builder := azsdk.NewClientOptionsBuilder().WithTransport(httpClient)
	return NewAzureClient(
		&StaticCredentialProvider{TokenCredential: &mocks.MockCredentials{}},
		builder.BuildArmClientOptions(),
		builder.BuildCoreClientOptions(),
	)
}

func pathHasSuffix(method string, suffix string) mockhttp.RequestPredicate {
	return func(request *http.Request) bool {
		return request.Method == method && strings.HasSuffix(strings.ToLower(request.URL.Path), strings.ToLower(suffix))
	}
}

func TestRestartWebApp(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodPost, "/sites/tensora-acme-dev-count-api/restart")).
		Respond(http.StatusOK, nil)

	err := newTestClient(httpClient).RestartWebApp(
		context.Background(), testSubscription, testResourceGroup, "tensora-acme-dev-count-api")
	require.NoError(t, err)

	request := httpClient.Requests()[0]
	require.Equal(t, "false", request.URL.Query().Get("softRestart"))
	require.Equal(t, "true", request.URL.Query().Get("synchronous"))
	require.Contains(t, request.URL.Path, "/subscriptions/"+testSubscription+"/resourceGroups/"+testResourceGroup)
}

func TestRestartWebAppFailure(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodPost, "/restart")).
		Respond(http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "ResourceNotFound", "message": "not found"},
		})

	err := newTestClient(httpClient).RestartWebApp(context.Background(), testSubscription, testResourceGroup, "missing")
	require.ErrorContains(t, err, "restarting webapp 'missing'")
}

func TestWebAppProperties(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodGet, "/sites/app")).
		Respond(http.StatusOK, map[string]any{
			"properties": map[string]any{"defaultHostName": "app.azurewebsites.net"},
		})
	httpClient.When(pathHasSuffix(http.MethodGet, "/sites/app/config/web")).
		Respond(http.StatusOK, map[string]any{
			"properties": map[string]any{"healthCheckPath": "/api/health"},
		})

	client := newTestClient(httpClient)

	hostName, err := client.GetWebAppHostName(context.Background(), testSubscription, testResourceGroup, "app")
	require.NoError(t, err)
	require.Equal(t, "app.azurewebsites.net", hostName)

	path, err := client.GetWebAppHealthCheckPath(context.Background(), testSubscription, testResourceGroup, "app")
	require.NoError(t, err)
	require.Equal(t, "/api/health", path)
}

func TestGetRegistryCredentials(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodGet, "/registries/tensoraacmedevacr")).
		Respond(http.StatusOK, map[string]any{
			"properties": map[string]any{"loginServer": "tensoraacmedevacr.azurecr.io"},
		})
	httpClient.When(pathHasSuffix(http.MethodPost, "/registries/tensoraacmedevacr/listCredentials")).
		Respond(http.StatusOK, map[string]any{
			"username": "tensoraacmedevacr",
			"passwords": []map[string]any{
				{"name": "password", "value": "first"},
				{"name": "password2", "value": "second"},
			},
		})

	credentials, err := newTestClient(httpClient).GetRegistryCredentials(
		context.Background(), testSubscription, testResourceGroup, "tensoraacmedevacr")
	require.NoError(t, err)
	require.Equal(t, &RegistryCredentials{
		LoginServer: "tensoraacmedevacr.azurecr.io",
		Username:    "tensoraacmedevacr",
		Password:    "first",
	}, credentials)
}

func TestGetRegistryCredentialsAdminDisabled(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodGet, "/registries/acr")).
		Respond(http.StatusOK, map[string]any{"properties": map[string]any{"loginServer": "acr.azurecr.io"}})
	httpClient.When(pathHasSuffix(http.MethodPost, "/registries/acr/listCredentials")).
		Respond(http.StatusOK, map[string]any{})

	_, err := newTestClient(httpClient).GetRegistryCredentials(
		context.Background(), testSubscription, testResourceGroup, "acr")
	require.ErrorIs(t, err, ErrNoRegistryPassword)
}

func TestCosmos(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodGet, "/databaseAccounts/tensora-acme-dev-cosmos")).
		Respond(http.StatusOK, map[string]any{
			"properties": map[string]any{
				"documentEndpoint":  "https://tensora-acme-dev-cosmos.documents.azure.com:443/",
				"consistencyPolicy": map[string]any{"defaultConsistencyLevel": "Session"},
				"capabilities":      []map[string]any{{"name": "EnableServerless"}},
			},
		})
	httpClient.When(pathHasSuffix(http.MethodGet, "/sqlDatabases/tensora-count/containers")).
		Respond(http.StatusOK, map[string]any{
			"value": []map[string]any{
				{
					"name": "predictions",
					"properties": map[string]any{
						"resource": map[string]any{
							"id":           "predictions",
							"partitionKey": map[string]any{"paths": []string{"/project"}},
						},
					},
				},
				{
					"name": "projects",
					"properties": map[string]any{
						"resource": map[string]any{
							"id":           "projects",
							"partitionKey": map[string]any{"paths": []string{"/id"}},
						},
					},
				},
			},
		})

	client := newTestClient(httpClient)
	account, err := client.GetCosmosAccount(
		context.Background(), testSubscription, testResourceGroup, "tensora-acme-dev-cosmos")
	require.NoError(t, err)
	require.Equal(t, "Session", account.Consistency)
	require.True(t, account.Serverless)

	containers, err := client.ListCosmosContainers(
		context.Background(), testSubscription, testResourceGroup, "tensora-acme-dev-cosmos", "tensora-count")
	require.NoError(t, err)
	require.Equal(t, []CosmosContainer{
		{Name: "predictions", PartitionKeys: []string{"/project"}},
		{Name: "projects", PartitionKeys: []string{"/id"}},
	}, containers)
}

func TestResourceGroupExists(t *testing.T) {
	httpClient := mockhttp.NewMockHttpClient()
	httpClient.When(pathHasSuffix(http.MethodHead, "/resourcegroups/"+testResourceGroup)).
		Respond(http.StatusNoContent, nil)
	httpClient.When(pathHasSuffix(http.MethodHead, "/resourcegroups/missing")).
		Respond(http.StatusNotFound, nil)

	client := newTestClient(httpClient)

	exists, err := client.ResourceGroupExists(context.Background(), testSubscription, testResourceGroup)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = client.ResourceGroupExists(context.Background(), testSubscription, "missing")
	require.NoError(t, err)
	require.False(t, exists)
}
