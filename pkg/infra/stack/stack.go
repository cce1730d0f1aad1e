// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package stack declares the desired state of the count API infrastructure: input variables, lookups of existing
// resources, the resources themselves and the outputs. The stack is rendered to Terraform JSON configuration and
// evaluated by Terraform; nothing here talks to Azure.
package stack

import (
	"strconv"
)

const (
	ProviderSource  = "hashicorp/azurerm"
	ProviderVersion = "~> 4.0"
	// RequiredTerraformVersion matches the minimum version accepted by the terraform tool wrapper.
	RequiredTerraformVersion = ">= 1.1.7"

	DefaultHealthPath = "/api/health"
	DefaultImage      = "count-api"
	DefaultPort       = 8000
)

// Block is a resource or data source declaration. Attributes hold literal values, nested blocks
// ([]map[string]any) or interpolation strings built with Ref, Var and Cond.
type Block struct {
	Type       string
	Name       string
	Attributes map[string]any
}

// Output is a value surfaced after apply.
type Output struct {
	Name        string
	Value       string
	Description string
	Sensitive   bool
}

// Stack is the complete desired state of one customer/environment pair.
type Stack struct {
	Names       Names
	Variables   []Variable
	DataSources []Block
	Resources   []Block
	Outputs     []Output
	// RemoteState adds an empty azurerm backend block, configured at init time.
	RemoteState bool
}

// Options controls the parts of the stack that are not input variables.
type Options struct {
	Names       Names
	Image       string
	HealthPath  string
	Port        int
	RemoteState bool
}

// Addresses of the declared blocks.
const (
	ResourceGroupData  = "data.azurerm_resource_group.main"
	LegacyCosmosData   = "data.azurerm_cosmosdb_account.legacy"
	LegacyDatabaseData = "data.azurerm_cosmosdb_sql_database.legacy"
	LegacyStorageData  = "data.azurerm_storage_account.legacy"

	CosmosAccountResource     = "azurerm_cosmosdb_account.main"
	DatabaseResource          = "azurerm_cosmosdb_sql_database.main"
	ProjectsContainerResource = "azurerm_cosmosdb_sql_container.projects"
	PredictionsResource       = "azurerm_cosmosdb_sql_container.predictions"
	RegistryResource          = "azurerm_container_registry.main"
	PlanResource              = "azurerm_service_plan.main"
	WebAppResource            = "azurerm_linux_web_app.main"
)

// Address is the Terraform address of a resource.
func (b Block) Address() string {
	return b.Type + "." + b.Name
}

// DataAddress is the Terraform address of a data source.
func (b Block) DataAddress() string {
	return "data." + b.Address()
}

// New declares the stack.
func New(opts Options) *Stack {
	if opts.Image == "" {
		opts.Image = DefaultImage
	}
	if opts.HealthPath == "" {
		opts.HealthPath = DefaultHealthPath
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}

	return &Stack{
		Names:       opts.Names,
		Variables:   Variables(),
		DataSources: dataSources(),
		Resources:   resources(opts),
		Outputs:     outputs(),
		RemoteState: opts.RemoteState,
	}
}

const useLegacy = "var." + VarUseLegacyDatabase

func legacyCount() string {
	return Cond(useLegacy, "1", "0")
}

func legacyResourceGroup() string {
	return Cond(
		"var."+VarLegacyResourceGroupName+` != ""`,
		"var."+VarLegacyResourceGroupName,
		"var."+VarResourceGroupName,
	)
}

func dataSources() []Block {
	return []Block{
		{
			Type: "azurerm_resource_group",
			Name: "main",
			Attributes: map[string]any{
				"name": Var(VarResourceGroupName),
			},
		},
		{
			Type: "azurerm_cosmosdb_account",
			Name: "legacy",
			Attributes: map[string]any{
				"count":               legacyCount(),
				"name":                Var(VarLegacyCosmosAccountName),
				"resource_group_name": legacyResourceGroup(),
			},
		},
		{
			Type: "azurerm_cosmosdb_sql_database",
			Name: "legacy",
			Attributes: map[string]any{
				"count":               legacyCount(),
				"name":                Var(VarLegacyCosmosDatabaseName),
				"account_name":        Var(VarLegacyCosmosAccountName),
				"resource_group_name": legacyResourceGroup(),
			},
		},
		{
			Type: "azurerm_storage_account",
			Name: "legacy",
			Attributes: map[string]any{
				"name":                Var(VarLegacyStorageAccountName),
				"resource_group_name": legacyResourceGroup(),
			},
		},
	}
}

func tags() map[string]any {
	return map[string]any{
		"customer":    Var(VarCustomer),
		"environment": Var(VarEnvironment),
		"managed-by":  "tcinfra",
	}
}

// effective selects the legacy attribute when the legacy database is in use.
func effective(legacyAddress string, legacyAttr string, address string, attr string) string {
	return Cond(useLegacy, Attr(Index(legacyAddress, 0), legacyAttr), Attr(address, attr))
}

func resources(opts Options) []Block {
	names := opts.Names
	sku := PlanSku(names.Environment)
	rgName := Ref(ResourceGroupData, "name")
	location := Var(VarLocation)

	container := func(name string, partitionKey string) Block {
		return Block{
			Type: "azurerm_cosmosdb_sql_container",
			Name: name,
			Attributes: map[string]any{
				"name":                  name,
				"resource_group_name":   rgName,
				"account_name":          Ref(CosmosAccountResource, "name"),
				"database_name":         Ref(DatabaseResource, "name"),
				"partition_key_paths":   []string{partitionKey},
				"partition_key_version": 2,
			},
		}
	}

	return []Block{
		{
			Type: "azurerm_cosmosdb_account",
			Name: "main",
			Attributes: map[string]any{
				"name":                names.CosmosAccount,
				"location":            location,
				"resource_group_name": rgName,
				"offer_type":          "Standard",
				"kind":                "GlobalDocumentDB",
				"consistency_policy": []map[string]any{
					{"consistency_level": "Session"},
				},
				"geo_location": []map[string]any{
					{"location": location, "failover_priority": 0},
				},
				"capabilities": []map[string]any{
					{"name": "EnableServerless"},
				},
				"tags": tags(),
			},
		},
		{
			Type: "azurerm_cosmosdb_sql_database",
			Name: "main",
			Attributes: map[string]any{
				"name":                names.Database,
				"resource_group_name": rgName,
				"account_name":        Ref(CosmosAccountResource, "name"),
			},
		},
		container(names.Projects, ProjectsPartitionKey),
		container(names.Predictions, PredictionsPartitionKey),
		{
			Type: "azurerm_container_registry",
			Name: "main",
			Attributes: map[string]any{
				"name":                names.Registry,
				"location":            location,
				"resource_group_name": rgName,
				"sku":                 "Basic",
				"admin_enabled":       true,
				"tags":                tags(),
			},
		},
		{
			Type: "azurerm_service_plan",
			Name: "main",
			Attributes: map[string]any{
				"name":                names.Plan,
				"location":            location,
				"resource_group_name": rgName,
				"os_type":             "Linux",
				"sku_name":            sku,
				"tags":                tags(),
			},
		},
		{
			Type: "azurerm_linux_web_app",
			Name: "main",
			Attributes: map[string]any{
				"name":                names.WebApp,
				"location":            location,
				"resource_group_name": rgName,
				"service_plan_id":     Ref(PlanResource, "id"),
				"https_only":          true,
				"site_config": []map[string]any{
					{
						"always_on":                         sku != "B1",
						"health_check_path":                 opts.HealthPath,
						"health_check_eviction_time_in_min": 5,
						"application_stack": []map[string]any{
							{
								"docker_image_name":        opts.Image + ":" + Var(VarImageTag),
								"docker_registry_url":      "https://" + Ref(RegistryResource, "login_server"),
								"docker_registry_username": Ref(RegistryResource, "admin_username"),
								"docker_registry_password": Ref(RegistryResource, "admin_password"),
							},
						},
					},
				},
				"logs": []map[string]any{
					{
						"http_logs": []map[string]any{
							{
								"file_system": []map[string]any{
									{"retention_in_days": 7, "retention_in_mb": 35},
								},
							},
						},
					},
				},
				"app_settings": appSettings(opts),
				"tags":         tags(),
			},
		},
	}
}

func appSettings(opts Options) map[string]any {
	storageConnection := Ref(LegacyStorageData, "primary_connection_string")

	return map[string]any{
		"COSMOS_DB_ENDPOINT":              effective(LegacyCosmosData, "endpoint", CosmosAccountResource, "endpoint"),
		"COSMOS_DB_PRIMARY_KEY":           effective(LegacyCosmosData, "primary_key", CosmosAccountResource, "primary_key"),
		"COSMOS_DB_DATABASE_NAME":         effective(LegacyDatabaseData, "name", DatabaseResource, "name"),
		"AZURE_STORAGE_CONNECTION_STRING": storageConnection,
		"BLOB_CONNECTION":                 storageConnection,
		"API_KEY":                         Var(VarApiKey),
		"LOG_LEVEL":                       Var(VarLogLevel),
		"PREDICT_BACKEND_BASE_URL":        Var(VarPredictBackendBaseUrl),
		"PREDICT_BACKEND_API_KEY":         Var(VarPredictBackendApiKey),
		"WEBSITES_PORT":                   strconv.Itoa(opts.Port),
		"DOCKER_ENABLE_CI":                "true",
	}
}

// Output names.
const (
	OutputCosmosEndpoint      = "cosmos_endpoint"
	OutputCosmosDatabaseName  = "cosmos_database_name"
	OutputRegistryLoginServer = "registry_login_server"
	OutputWebAppName          = "web_app_name"
	OutputWebAppHostname      = "web_app_hostname"
	OutputWebAppUrl           = "web_app_url"
)

func outputs() []Output {
	return []Output{
		{
			Name:        OutputCosmosEndpoint,
			Value:       effective(LegacyCosmosData, "endpoint", CosmosAccountResource, "endpoint"),
			Description: "Endpoint of the Cosmos DB account the web app uses.",
		},
		{
			Name:        OutputCosmosDatabaseName,
			Value:       effective(LegacyDatabaseData, "name", DatabaseResource, "name"),
			Description: "Database the web app uses.",
		},
		{
			Name:        OutputRegistryLoginServer,
			Value:       Ref(RegistryResource, "login_server"),
			Description: "Login server of the container registry.",
		},
		{
			Name:        OutputWebAppName,
			Value:       Ref(WebAppResource, "name"),
			Description: "Name of the web app.",
		},
		{
			Name:        OutputWebAppHostname,
			Value:       Ref(WebAppResource, "default_hostname"),
			Description: "Default hostname of the web app.",
		},
		{
			Name:        OutputWebAppUrl,
			Value:       "https://" + Ref(WebAppResource, "default_hostname"),
			Description: "Public URL of the web app.",
		},
	}
}

// Resource returns the resource declared at address.
func (s *Stack) Resource(address string) (Block, bool) {
	for _, r := range s.Resources {
		if r.Address() == address {
			return r, true
		}
	}

	return Block{}, false
}

// DataSource returns the data source declared at address.
func (s *Stack) DataSource(address string) (Block, bool) {
	for _, d := range s.DataSources {
		if d.DataAddress() == address {
			return d, true
		}
	}

	return Block{}, false
}
