// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

// Package pipeline runs the fixed deployment sequence: provision, build, push, wait, restart and an optional health
// check. The first failing step aborts the run; nothing is retried or rolled back.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/tensora/tcinfra/internal/tracing"
	"github.com/tensora/tcinfra/pkg/azapi"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/infra/provisioning"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/project"
	"github.com/tensora/tcinfra/pkg/tools/docker"
)

type StepName string

const (
	StepProvision StepName = "provision"
	StepBuild     StepName = "build"
	StepPush      StepName = "push"
	StepWait      StepName = "wait"
	StepRestart   StepName = "restart"
	StepHealth    StepName = "health"
)

var stepTitles = map[StepName]string{
	StepProvision: "Provisioning Azure resources",
	StepBuild:     "Building container image",
	StepPush:      "Pushing container image",
	StepWait:      "Waiting for the registry",
	StepRestart:   "Restarting web app",
	StepHealth:    "Checking health endpoint",
}

// ProvisionSteps only applies the declared resources.
func ProvisionSteps() []StepName {
	return []StepName{StepProvision}
}

// DeploySteps ships a new image to already provisioned resources.
func DeploySteps(verify bool) []StepName {
	steps := []StepName{StepBuild, StepPush, StepWait, StepRestart}
	if verify {
		steps = append(steps, StepHealth)
	}
	return steps
}

// UpSteps is the push-triggered sequence.
func UpSteps(verify bool) []StepName {
	return append(ProvisionSteps(), DeploySteps(verify)...)
}

// StepError reports the step that aborted a run.
type StepError struct {
	Step StepName
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step '%s' failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// AzureOperations are the management API calls made by the pipeline.
type AzureOperations interface {
	GetRegistryLoginServer(ctx context.Context, subscriptionId string, resourceGroup string, name string) (string, error)
	GetRegistryCredentials(
		ctx context.Context, subscriptionId string, resourceGroup string, name string) (*azapi.RegistryCredentials, error)
	RestartWebApp(ctx context.Context, subscriptionId string, resourceGroup string, appName string) error
	GetWebAppHostName(ctx context.Context, subscriptionId string, resourceGroup string, appName string) (string, error)
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Name     StepName          `json:"name"`
	Status   output.StepStatus `json:"status"`
	Duration time.Duration     `json:"duration"`
}

// Result summarizes a run.
type Result struct {
	RunId     string       `json:"runId"`
	Image     string       `json:"image,omitempty"`
	WebAppUrl string       `json:"webAppUrl,omitempty"`
	Steps     []StepResult `json:"steps"`
}

type Options struct {
	// Tag overrides the computed image tag.
	Tag string
	// WorkDir receives the generated Dockerfile when the project has none.
	WorkDir string
}

// Runner executes pipeline steps for one environment.
type Runner struct {
	env      *environment.Environment
	project  *project.ProjectConfig
	names    stack.Names
	provider provisioning.Provider
	docker   docker.Docker
	azure    AzureOperations
	checker  *HealthChecker
	clock    clock.Clock
	writer   io.Writer
	options  Options

	tag         string
	loginServer string
	image       string
}

func NewRunner(
	env *environment.Environment,
	projectConfig *project.ProjectConfig,
	names stack.Names,
	provider provisioning.Provider,
	dockerCli docker.Docker,
	azure AzureOperations,
	checker *HealthChecker,
	clk clock.Clock,
	writer io.Writer,
	options Options,
) *Runner {
	return &Runner{
		env:      env,
		project:  projectConfig,
		names:    names,
		provider: provider,
		docker:   dockerCli,
		azure:    azure,
		checker:  checker,
		clock:    clk,
		writer:   writer,
		options:  options,
	}
}

// Run executes steps in order and stops at the first failure, which is returned as a *StepError.
func (r *Runner) Run(ctx context.Context, steps []StepName) (*Result, error) {
	result := &Result{RunId: uuid.NewString()}

	ctx, span := tracing.StartSpan(ctx, "pipeline.run",
		tracing.RunIdKey.String(result.RunId),
		tracing.EnvironmentKey.String(r.env.Name()))

	log.Printf("pipeline run %s: %v", result.RunId, steps)

	var runErr error
	for _, step := range steps {
		stepResult, err := r.runStep(ctx, step)
		result.Steps = append(result.Steps, stepResult)
		if err != nil {
			runErr = &StepError{Step: step, Err: err}
			break
		}
	}

	result.Image = r.image
	if hostName := r.env.Output(stack.OutputWebAppHostname); hostName != "" {
		result.WebAppUrl = "https://" + hostName
	}

	tracing.EndSpan(span, runErr)
	return result, runErr
}

func (r *Runner) runStep(ctx context.Context, step StepName) (StepResult, error) {
	title := stepTitles[step]
	output.PrintStepStart(r.writer, title)

	ctx, span := tracing.StartSpan(ctx, "pipeline."+string(step), tracing.StepKey.String(string(step)))
	start := r.clock.Now()

	var err error
	switch step {
	case StepProvision:
		err = r.provision(ctx)
	case StepBuild:
		err = r.build(ctx)
	case StepPush:
		err = r.push(ctx)
	case StepWait:
		err = r.wait(ctx)
	case StepRestart:
		err = r.restart(ctx)
	case StepHealth:
		err = r.health(ctx)
	default:
		err = fmt.Errorf("unknown step '%s'", step)
	}

	elapsed := r.clock.Since(start)
	status := output.StepDone
	if err != nil {
		status = output.StepFailed
	}

	output.PrintStepResult(r.writer, title, status, elapsed)
	tracing.EndSpan(span, err)

	return StepResult{Name: step, Status: status, Duration: elapsed}, err
}
