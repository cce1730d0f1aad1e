// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package verify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/pkg/azapi"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/infra/stack"
)

type fakeAzure struct {
	resourceGroups map[string]bool
	containers     []azapi.CosmosContainer
	healthPath     string
	listedAccount  string
}

func (f *fakeAzure) ResourceGroupExists(ctx context.Context, subscriptionId string, resourceGroup string) (bool, error) {
	return f.resourceGroups[resourceGroup], nil
}

func (f *fakeAzure) GetCosmosAccount(
	ctx context.Context, subscriptionId string, resourceGroup string, accountName string) (*azapi.CosmosAccount, error) {
	return &azapi.CosmosAccount{
		Name:        accountName,
		Endpoint:    "https://" + accountName + ".documents.azure.com:443/",
		Consistency: "Session",
	}, nil
}

func (f *fakeAzure) ListCosmosContainers(
	ctx context.Context,
	subscriptionId string,
	resourceGroup string,
	accountName string,
	databaseName string,
) ([]azapi.CosmosContainer, error) {
	f.listedAccount = resourceGroup + "/" + accountName + "/" + databaseName
	return f.containers, nil
}

func (f *fakeAzure) GetWebAppHostName(
	ctx context.Context, subscriptionId string, resourceGroup string, appName string) (string, error) {
	return appName + ".azurewebsites.net", nil
}

func (f *fakeAzure) GetWebAppHealthCheckPath(
	ctx context.Context, subscriptionId string, resourceGroup string, appName string) (string, error) {
	return f.healthPath, nil
}

type fakeHealthChecker struct {
	url string
	err error
}

func (p *fakeHealthChecker) Check(ctx context.Context, url string) error {
	p.url = url
	return p.err
}

func newVerifier(t *testing.T, values map[string]string) (*Verifier, *fakeAzure, *fakeHealthChecker) {
	names, err := stack.NewNames("acme", "dev", stack.NameTemplates{})
	require.NoError(t, err)

	env := environment.NewWithValues("dev", map[string]string{
		"AZURE_SUBSCRIPTION_ID": "sub",
		"AZURE_RESOURCE_GROUP":  "rg-acme-dev",
	})
	for key, value := range values {
		env.DotenvSet(key, value)
	}

	azure := &fakeAzure{
		resourceGroups: map[string]bool{"rg-acme-dev": true},
		containers: []azapi.CosmosContainer{
			{Name: "predictions", PartitionKeys: []string{"/project"}},
			{Name: "projects", PartitionKeys: []string{"/id"}},
		},
		healthPath: "/api/health",
	}
	checker := &fakeHealthChecker{}

	return NewVerifier(env, stack.New(stack.Options{Names: names}), azure, checker, "/api/health"), azure, checker
}

func statuses(report *Report) map[string]Status {
	result := map[string]Status{}
	for _, check := range report.Checks {
		result[check.Name] = check.Status
	}
	return result
}

func TestAllChecksPass(t *testing.T) {
	verifier, azure, checker := newVerifier(t, nil)

	report := verifier.Run(context.Background())
	require.False(t, report.Failed())
	require.Len(t, report.Checks, 7)
	for _, check := range report.Checks {
		require.Equal(t, StatusPass, check.Status, check.Name)
	}

	require.Equal(t, "rg-acme-dev/tensora-acme-dev-cosmos/tensora-count", azure.listedAccount)
	require.Equal(t, "https://tensora-acme-dev-count-api.azurewebsites.net/api/health", checker.url)
}

func TestMissingResourceGroupSkipsAzureChecks(t *testing.T) {
	verifier, azure, _ := newVerifier(t, nil)
	azure.resourceGroups = map[string]bool{}

	report := verifier.Run(context.Background())
	require.True(t, report.Failed())
	require.Equal(t, map[string]Status{
		CheckReferences:      StatusPass,
		CheckNaming:          StatusPass,
		CheckResourceGroup:   StatusFail,
		CheckCosmosAccount:   StatusSkip,
		CheckCosmosContainer: StatusSkip,
		CheckHealthPath:      StatusSkip,
		CheckHealthEndpoint:  StatusSkip,
	}, statuses(report))
}

func TestContainerMismatch(t *testing.T) {
	verifier, azure, _ := newVerifier(t, nil)
	azure.containers = []azapi.CosmosContainer{
		{Name: "projects", PartitionKeys: []string{"/project"}},
	}

	report := verifier.Run(context.Background())
	require.True(t, report.Failed())

	for _, check := range report.Checks {
		if check.Name == CheckCosmosContainer {
			require.Equal(t, StatusFail, check.Status)
			require.Contains(t, check.Message, "container 'projects' is partitioned by [/project], expected [/id]")
			require.Contains(t, check.Message, "container 'predictions' is missing")
		}
	}
}

func TestLegacyDatabase(t *testing.T) {
	verifier, azure, _ := newVerifier(t, map[string]string{
		"TC_USE_LEGACY_DATABASE":    "true",
		"TC_LEGACY_RESOURCE_GROUP":  "rg-legacy",
		"TC_LEGACY_COSMOS_ACCOUNT":  "old-cosmos",
		"TC_LEGACY_COSMOS_DATABASE": "old-db",
	})

	verifier.Run(context.Background())
	require.Equal(t, "rg-legacy/old-cosmos/old-db", azure.listedAccount)
}

func TestHealthFailures(t *testing.T) {
	verifier, azure, checker := newVerifier(t, nil)
	azure.healthPath = "/health"
	checker.err = errors.New("service is not healthy")

	report := verifier.Run(context.Background())
	checks := statuses(report)
	require.Equal(t, StatusFail, checks[CheckHealthPath])
	require.Equal(t, StatusFail, checks[CheckHealthEndpoint])
}

func TestNamingViolation(t *testing.T) {
	verifier, _, _ := newVerifier(t, nil)
	verifier.stack.Names.Registry = "invalid-registry-name"

	report := verifier.Run(context.Background())
	require.Equal(t, StatusFail, statuses(report)[CheckNaming])
}
