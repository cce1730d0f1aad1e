// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package verify checks that the declared stack is internally consistent and matches what is running in Azure.
package verify

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tensora/tcinfra/internal/tracing"
	"github.com/tensora/tcinfra/pkg/azapi"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/infra/stack"
)

type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Check names, in execution order.
const (
	CheckReferences      = "references"
	CheckNaming          = "naming"
	CheckResourceGroup   = "resource-group"
	CheckCosmosAccount   = "cosmos-account"
	CheckCosmosContainer = "cosmos-containers"
	CheckHealthPath      = "health-check-path"
	CheckHealthEndpoint  = "health-endpoint"
)

type Check struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type Report struct {
	Environment string  `json:"environment"`
	Checks      []Check `json:"checks"`
}

// Failed reports whether any check failed.
func (r *Report) Failed() bool {
	return slices.ContainsFunc(r.Checks, func(c Check) bool { return c.Status == StatusFail })
}

// AzureReader are the read-only management API calls used by the checks.
type AzureReader interface {
	ResourceGroupExists(ctx context.Context, subscriptionId string, resourceGroup string) (bool, error)
	GetCosmosAccount(
		ctx context.Context, subscriptionId string, resourceGroup string, accountName string) (*azapi.CosmosAccount, error)
	ListCosmosContainers(
		ctx context.Context,
		subscriptionId string,
		resourceGroup string,
		accountName string,
		databaseName string,
	) ([]azapi.CosmosContainer, error)
	GetWebAppHostName(ctx context.Context, subscriptionId string, resourceGroup string, appName string) (string, error)
	GetWebAppHealthCheckPath(
		ctx context.Context, subscriptionId string, resourceGroup string, appName string) (string, error)
}

// HealthChecker checks the health endpoint once.
type HealthChecker interface {
	Check(ctx context.Context, url string) error
}

type Verifier struct {
	env        *environment.Environment
	stack      *stack.Stack
	azure      AzureReader
	checker    HealthChecker
	healthPath string
}

func NewVerifier(
	env *environment.Environment,
	declared *stack.Stack,
	azure AzureReader,
	checker HealthChecker,
	healthPath string,
) *Verifier {
	return &Verifier{
		env:        env,
		stack:      declared,
		azure:      azure,
		checker:    checker,
		healthPath: healthPath,
	}
}

type checkFn func(ctx context.Context) (Status, string)

// Run executes every check. Checks against Azure are skipped once the resource group is known to be missing.
func (v *Verifier) Run(ctx context.Context) *Report {
	report := &Report{Environment: v.env.Name()}

	run := func(name string, fn checkFn) Status {
		ctx, span := tracing.StartSpan(ctx, "verify."+name, tracing.CheckKey.String(name))
		status, message := fn(ctx)

		var err error
		if status == StatusFail {
			err = fmt.Errorf("%s", message)
		}
		tracing.EndSpan(span, err)

		report.Checks = append(report.Checks, Check{Name: name, Status: status, Message: message})
		return status
	}

	run(CheckReferences, v.checkReferences)
	run(CheckNaming, v.checkNaming)

	azureChecks := []struct {
		name string
		fn   checkFn
	}{
		{CheckCosmosAccount, v.checkCosmosAccount},
		{CheckCosmosContainer, v.checkCosmosContainers},
		{CheckHealthPath, v.checkHealthPath},
		{CheckHealthEndpoint, v.checkHealthEndpoint},
	}

	if run(CheckResourceGroup, v.checkResourceGroup) != StatusPass {
		for _, check := range azureChecks {
			report.Checks = append(report.Checks, Check{
				Name:    check.name,
				Status:  StatusSkip,
				Message: "resource group is not available",
			})
		}
		return report
	}

	for _, check := range azureChecks {
		run(check.name, check.fn)
	}

	return report
}

func failed(err error) (Status, string) {
	return StatusFail, err.Error()
}

func (v *Verifier) checkReferences(ctx context.Context) (Status, string) {
	if err := stack.CheckReferences(v.stack); err != nil {
		return failed(err)
	}

	refs, err := stack.References(v.stack)
	if err != nil {
		return failed(err)
	}

	return StatusPass, fmt.Sprintf("%d references resolve", len(refs))
}

func (v *Verifier) checkNaming(ctx context.Context) (Status, string) {
	if err := v.stack.Names.Validate(); err != nil {
		return failed(err)
	}

	return StatusPass, ""
}

func (v *Verifier) checkResourceGroup(ctx context.Context) (Status, string) {
	resourceGroup := v.env.GetResourceGroup()
	if resourceGroup == "" {
		return StatusFail, "AZURE_RESOURCE_GROUP is not set"
	}

	exists, err := v.azure.ResourceGroupExists(ctx, v.env.GetSubscriptionId(), resourceGroup)
	if err != nil {
		return failed(err)
	}

	if !exists {
		return StatusFail, fmt.Sprintf("resource group '%s' does not exist", resourceGroup)
	}

	return StatusPass, resourceGroup
}

// database returns where the containers live, honoring the legacy database toggle.
func (v *Verifier) database() (resourceGroup string, account string, database string) {
	resourceGroup = v.env.GetResourceGroup()
	account = v.stack.Names.CosmosAccount
	database = v.stack.Names.Database

	useLegacy, _ := strconv.ParseBool(v.variable(stack.VarUseLegacyDatabase))
	if !useLegacy {
		return resourceGroup, account, database
	}

	if legacy := v.variable(stack.VarLegacyResourceGroupName); legacy != "" {
		resourceGroup = legacy
	}

	return resourceGroup, v.variable(stack.VarLegacyCosmosAccountName), v.variable(stack.VarLegacyCosmosDatabaseName)
}

// variable reads the environment value of a stack variable, falling back to its default.
func (v *Verifier) variable(name string) string {
	for _, variable := range v.stack.Variables {
		if variable.Name != name {
			continue
		}

		if value := v.env.Getenv(variable.EnvKey); value != "" {
			return value
		}

		if variable.Default != nil {
			return fmt.Sprint(variable.Default)
		}
	}

	return ""
}

func (v *Verifier) checkCosmosAccount(ctx context.Context) (Status, string) {
	resourceGroup, accountName, _ := v.database()

	account, err := v.azure.GetCosmosAccount(ctx, v.env.GetSubscriptionId(), resourceGroup, accountName)
	if err != nil {
		return failed(err)
	}

	mode := "provisioned"
	if account.Serverless {
		mode = "serverless"
	}

	return StatusPass, fmt.Sprintf("%s (%s, %s)", account.Endpoint, account.Consistency, mode)
}

func (v *Verifier) checkCosmosContainers(ctx context.Context) (Status, string) {
	resourceGroup, account, database := v.database()

	containers, err := v.azure.ListCosmosContainers(ctx, v.env.GetSubscriptionId(), resourceGroup, account, database)
	if err != nil {
		return failed(err)
	}

	actual := map[string][]string{}
	for _, container := range containers {
		actual[container.Name] = container.PartitionKeys
	}

	expected := map[string]string{
		v.stack.Names.Projects:    stack.ProjectsPartitionKey,
		v.stack.Names.Predictions: stack.PredictionsPartitionKey,
	}

	var problems []string
	for _, name := range []string{v.stack.Names.Projects, v.stack.Names.Predictions} {
		keys, has := actual[name]
		switch {
		case !has:
			problems = append(problems, fmt.Sprintf("container '%s' is missing", name))
		case !slices.Equal(keys, []string{expected[name]}):
			problems = append(problems, fmt.Sprintf("container '%s' is partitioned by %v, expected [%s]",
				name, keys, expected[name]))
		}
	}

	if len(problems) > 0 {
		return StatusFail, strings.Join(problems, "; ")
	}

	return StatusPass, fmt.Sprintf("%s/%s", account, database)
}

func (v *Verifier) webAppName() string {
	if name := v.env.Output(stack.OutputWebAppName); name != "" {
		return name
	}
	return v.stack.Names.WebApp
}

func (v *Verifier) checkHealthPath(ctx context.Context) (Status, string) {
	path, err := v.azure.GetWebAppHealthCheckPath(
		ctx, v.env.GetSubscriptionId(), v.env.GetResourceGroup(), v.webAppName())
	if err != nil {
		return failed(err)
	}

	if path != v.healthPath {
		return StatusFail, fmt.Sprintf("health check path is '%s', expected '%s'", path, v.healthPath)
	}

	return StatusPass, path
}

func (v *Verifier) checkHealthEndpoint(ctx context.Context) (Status, string) {
	hostName, err := v.azure.GetWebAppHostName(ctx, v.env.GetSubscriptionId(), v.env.GetResourceGroup(), v.webAppName())
	if err != nil {
		return failed(err)
	}

	url := "https://" + hostName + v.healthPath
	if err := v.checker.Check(ctx, url); err != nil {
		return failed(err)
	}

	return StatusPass, url
}
