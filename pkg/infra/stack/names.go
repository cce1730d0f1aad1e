// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package stack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tensora/tcinfra/pkg/osutil"
	"go.uber.org/multierr"
)

// NamePrefix is the fixed prefix of every resource name.
const NamePrefix = "tensora"

const (
	ProjectsContainerName    = "projects"
	PredictionsContainerName = "predictions"

	ProjectsPartitionKey    = "/id"
	PredictionsPartitionKey = "/project"
)

// NameTemplates overrides the default naming convention. Templates may reference ${PREFIX}, ${CUSTOMER} and
// ${ENVIRONMENT}.
type NameTemplates struct {
	CosmosAccount osutil.ExpandableString `yaml:"cosmosAccount,omitempty"`
	Database      osutil.ExpandableString `yaml:"database,omitempty"`
	Registry      osutil.ExpandableString `yaml:"registry,omitempty"`
	Plan          osutil.ExpandableString `yaml:"plan,omitempty"`
	WebApp        osutil.ExpandableString `yaml:"webApp,omitempty"`
}

var defaultNameTemplates = NameTemplates{
	CosmosAccount: osutil.NewExpandableString("${PREFIX}-${CUSTOMER}-${ENVIRONMENT}-cosmos"),
	Database:      osutil.NewExpandableString("${PREFIX}-count"),
	Registry:      osutil.NewExpandableString("${PREFIX}${CUSTOMER}${ENVIRONMENT}acr"),
	Plan:          osutil.NewExpandableString("${PREFIX}-${CUSTOMER}-${ENVIRONMENT}-plan"),
	WebApp:        osutil.NewExpandableString("${PREFIX}-${CUSTOMER}-${ENVIRONMENT}-count-api"),
}

// Names are the resource names of one customer/environment pair.
type Names struct {
	Customer      string `json:"customer"`
	Environment   string `json:"environment"`
	CosmosAccount string `json:"cosmosAccount"`
	Database      string `json:"database"`
	Projects      string `json:"projectsContainer"`
	Predictions   string `json:"predictionsContainer"`
	Registry      string `json:"registry"`
	Plan          string `json:"plan"`
	WebApp        string `json:"webApp"`
}

// NewNames derives the names from the lower-cased customer and environment tokens.
func NewNames(customer string, environment string, templates NameTemplates) (Names, error) {
	names := Names{
		Customer:    strings.ToLower(strings.TrimSpace(customer)),
		Environment: strings.ToLower(strings.TrimSpace(environment)),
		Projects:    ProjectsContainerName,
		Predictions: PredictionsContainerName,
	}

	mapping := func(name string) string {
		switch name {
		case "PREFIX":
			return NamePrefix
		case "CUSTOMER":
			return names.Customer
		case "ENVIRONMENT":
			return names.Environment
		default:
			return ""
		}
	}

	eval := func(template osutil.ExpandableString, fallback osutil.ExpandableString, target *string) error {
		if template.Empty() {
			template = fallback
		}

		value, err := template.Envsubst(mapping)
		if err != nil {
			return fmt.Errorf("evaluating name template '%s': %w", template.Template, err)
		}

		*target = value
		return nil
	}

	err := multierr.Combine(
		eval(templates.CosmosAccount, defaultNameTemplates.CosmosAccount, &names.CosmosAccount),
		eval(templates.Database, defaultNameTemplates.Database, &names.Database),
		eval(templates.Registry, defaultNameTemplates.Registry, &names.Registry),
		eval(templates.Plan, defaultNameTemplates.Plan, &names.Plan),
		eval(templates.WebApp, defaultNameTemplates.WebApp, &names.WebApp),
	)
	if err != nil {
		return Names{}, err
	}

	// registries only accept alphanumerics
	names.Registry = nonAlphanumeric.ReplaceAllString(names.Registry, "")

	return names, nil
}

var (
	nonAlphanumeric  = regexp.MustCompile(`[^a-zA-Z0-9]`)
	cosmosNameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,42}[a-z0-9]$`)
	registryRegexp   = regexp.MustCompile(`^[a-zA-Z0-9]{5,50}$`)
	planRegexp       = regexp.MustCompile(`^[a-zA-Z0-9-]{1,60}$`)
	webAppRegexp     = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,58}[a-zA-Z0-9]$`)
	databaseInvalid  = regexp.MustCompile(`[/\\#?]`)
)

// Validate applies the Azure naming rules locally and reports every violation. Azure stays the authority on the
// final outcome.
func (n Names) Validate() error {
	var err error
	if n.Customer == "" {
		err = multierr.Append(err, fmt.Errorf("customer is required"))
	}
	if n.Environment == "" {
		err = multierr.Append(err, fmt.Errorf("environment is required"))
	}
	if !cosmosNameRegexp.MatchString(n.CosmosAccount) {
		err = multierr.Append(err, fmt.Errorf(
			"cosmos account name '%s' must be 3-44 lower-case letters, digits or hyphens", n.CosmosAccount))
	}
	if n.Database == "" || len(n.Database) > 255 || databaseInvalid.MatchString(n.Database) {
		err = multierr.Append(err, fmt.Errorf(
			"database name '%s' must be 1-255 characters without '/', '\\', '#' or '?'", n.Database))
	}
	if !registryRegexp.MatchString(n.Registry) {
		err = multierr.Append(err, fmt.Errorf(
			"registry name '%s' must be 5-50 letters or digits", n.Registry))
	}
	if !planRegexp.MatchString(n.Plan) {
		err = multierr.Append(err, fmt.Errorf(
			"plan name '%s' must be 1-60 letters, digits or hyphens", n.Plan))
	}
	if !webAppRegexp.MatchString(n.WebApp) {
		err = multierr.Append(err, fmt.Errorf(
			"web app name '%s' must be 2-60 letters, digits or hyphens and cannot start or end with a hyphen", n.WebApp))
	}

	return err
}

// PlanSku returns the hosting plan tier of an environment.
func PlanSku(environment string) string {
	switch strings.ToLower(environment) {
	case "prod", "production":
		return "P1v3"
	case "staging":
		return "S1"
	default:
		return "B1"
	}
}
