// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"github.com/tensora/tcinfra/pkg/azapi"
	"github.com/tensora/tcinfra/pkg/environment"
	"github.com/tensora/tcinfra/pkg/infra/provisioning"
	"github.com/tensora/tcinfra/pkg/infra/stack"
	"github.com/tensora/tcinfra/pkg/output"
	"github.com/tensora/tcinfra/pkg/project"
	"github.com/tensora/tcinfra/pkg/tools"
	"github.com/tensora/tcinfra/pkg/tools/docker"
	"github.com/tensora/tcinfra/test/mocks/mockhttp"
)

type fakeProvider struct {
	calls   []string
	applyFn func() (*provisioning.DeployResult, error)
}

func (p *fakeProvider) Name() string                                { return "fake" }
func (p *fakeProvider) RequiredExternalTools() []tools.ExternalTool { return nil }

func (p *fakeProvider) Generate(ctx context.Context) error {
	p.calls = append(p.calls, "generate")
	return nil
}

func (p *fakeProvider) Init(ctx context.Context) error {
	p.calls = append(p.calls, "init")
	return nil
}

func (p *fakeProvider) Validate(ctx context.Context) error {
	p.calls = append(p.calls, "validate")
	return nil
}

func (p *fakeProvider) Plan(ctx context.Context) error {
	p.calls = append(p.calls, "plan")
	return nil
}

func (p *fakeProvider) Apply(ctx context.Context) (*provisioning.DeployResult, error) {
	p.calls = append(p.calls, "apply")
	return p.applyFn()
}

func (p *fakeProvider) Outputs(ctx context.Context) (map[string]provisioning.OutputParameter, error) {
	return nil, nil
}

func (p *fakeProvider) Destroy(ctx context.Context, options provisioning.DestroyOptions) error {
	return nil
}

type fakeDocker struct {
	calls    []string
	builds   []docker.BuildOptions
	buildErr error
}

func (d *fakeDocker) CheckInstalled(ctx context.Context) error { return nil }
func (d *fakeDocker) InstallUrl() string                       { return "" }
func (d *fakeDocker) Name() string                             { return "Docker" }

func (d *fakeDocker) Login(ctx context.Context, loginServer string, username string, password string) error {
	d.calls = append(d.calls, "login "+loginServer+" "+username)
	return nil
}

func (d *fakeDocker) Build(ctx context.Context, options docker.BuildOptions) (string, error) {
	d.calls = append(d.calls, "build "+options.Tag)
	d.builds = append(d.builds, options)
	return "sha256:1234", d.buildErr
}

func (d *fakeDocker) Tag(ctx context.Context, cwd string, imageName string, tag string) error {
	d.calls = append(d.calls, "tag "+imageName+" "+tag)
	return nil
}

func (d *fakeDocker) Push(ctx context.Context, cwd string, tag string) error {
	d.calls = append(d.calls, "push "+tag)
	return nil
}

type fakeAzure struct {
	calls []string
}

func (a *fakeAzure) GetRegistryLoginServer(
	ctx context.Context, subscriptionId string, resourceGroup string, name string) (string, error) {
	a.calls = append(a.calls, "loginServer "+name)
	return name + ".azurecr.io", nil
}

func (a *fakeAzure) GetRegistryCredentials(
	ctx context.Context, subscriptionId string, resourceGroup string, name string) (*azapi.RegistryCredentials, error) {
	a.calls = append(a.calls, "credentials "+name)
	return &azapi.RegistryCredentials{LoginServer: name + ".azurecr.io", Username: name, Password: "p"}, nil
}

func (a *fakeAzure) RestartWebApp(ctx context.Context, subscriptionId string, resourceGroup string, appName string) error {
	a.calls = append(a.calls, "restart "+resourceGroup+"/"+appName)
	return nil
}

func (a *fakeAzure) GetWebAppHostName(
	ctx context.Context, subscriptionId string, resourceGroup string, appName string) (string, error) {
	a.calls = append(a.calls, "hostname "+appName)
	return appName + ".azurewebsites.net", nil
}

type testRunner struct {
	runner   *Runner
	env      *environment.Environment
	provider *fakeProvider
	docker   *fakeDocker
	azure    *fakeAzure
	http     *mockhttp.MockHttpClient
	clock    *clock.Mock
	project  *project.ProjectConfig
}

func newTestRunner(t *testing.T) *testRunner {
	t.Setenv("GITHUB_SHA", "")

	projectConfig, err := project.Parse("name: count\n")
	require.NoError(t, err)
	projectConfig.Path = t.TempDir()
	noDelay := project.Duration(0)
	projectConfig.RestartDelay = &noDelay

	names, err := stack.NewNames("acme", "dev", stack.NameTemplates{})
	require.NoError(t, err)

	env := environment.NewWithValues("dev", map[string]string{
		"AZURE_SUBSCRIPTION_ID": "sub",
		"AZURE_RESOURCE_GROUP":  "rg-acme-dev",
	})

	provider := &fakeProvider{applyFn: func() (*provisioning.DeployResult, error) {
		return &provisioning.DeployResult{Outputs: map[string]provisioning.OutputParameter{
			stack.OutputRegistryLoginServer: {Type: "string", Value: "tensoraacmedevacr.azurecr.io"},
			stack.OutputWebAppName:          {Type: "string", Value: "tensora-acme-dev-count-api"},
			stack.OutputWebAppHostname:      {Type: "string", Value: "tensora-acme-dev-count-api.azurewebsites.net"},
		}}, nil
	}}

	httpClient := mockhttp.NewMockHttpClient()
	checker := NewHealthChecker(httpClient)
	checker.InitialBackoff = time.Millisecond
	checker.MaxBackoff = 5 * time.Millisecond

	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC))

	tr := &testRunner{
		env:      env,
		provider: provider,
		docker:   &fakeDocker{},
		azure:    &fakeAzure{},
		http:     httpClient,
		clock:    mockClock,
		project:  projectConfig,
	}

	tr.runner = NewRunner(env, projectConfig, names, provider, tr.docker, tr.azure, checker, mockClock,
		&bytes.Buffer{}, Options{WorkDir: filepath.Join(projectConfig.Path, ".tcinfra", "dev")})
	return tr
}

func TestUp(t *testing.T) {
	tr := newTestRunner(t)
	tr.http.When(func(request *http.Request) bool {
		return request.URL.String() == "https://tensora-acme-dev-count-api.azurewebsites.net/api/health"
	}).Respond(http.StatusOK, map[string]any{"status": "healthy"})

	result, err := tr.runner.Run(context.Background(), UpSteps(true))
	require.NoError(t, err)

	require.Equal(t, []string{"generate", "init", "validate", "plan", "apply"}, tr.provider.calls)
	require.Equal(t, "tensoraacmedevacr.azurecr.io/count-api:20260314092653", result.Image)
	require.Equal(t, "https://tensora-acme-dev-count-api.azurewebsites.net", result.WebAppUrl)

	require.Equal(t, []string{
		"build tensoraacmedevacr.azurecr.io/count-api:20260314092653",
		"login tensoraacmedevacr.azurecr.io tensoraacmedevacr",
		"push tensoraacmedevacr.azurecr.io/count-api:20260314092653",
		"tag tensoraacmedevacr.azurecr.io/count-api:20260314092653 tensoraacmedevacr.azurecr.io/count-api:latest",
		"push tensoraacmedevacr.azurecr.io/count-api:latest",
	}, tr.docker.calls)

	// outputs of the provision step replace the management API lookups
	require.Equal(t, []string{
		"credentials tensoraacmedevacr",
		"restart rg-acme-dev/tensora-acme-dev-count-api",
	}, tr.azure.calls)

	require.Len(t, result.Steps, 6)
	for _, step := range result.Steps {
		require.Equal(t, output.StepDone, step.Status)
	}
	require.NotEmpty(t, result.RunId)
}

func TestDeployWithoutOutputs(t *testing.T) {
	tr := newTestRunner(t)
	t.Setenv("GITHUB_SHA", "0123456789abcdef")

	result, err := tr.runner.Run(context.Background(), DeploySteps(false))
	require.NoError(t, err)
	require.Empty(t, tr.provider.calls)
	require.Equal(t, "tensoraacmedevacr.azurecr.io/count-api:0123456", result.Image)

	require.Equal(t, []string{
		"loginServer tensoraacmedevacr",
		"credentials tensoraacmedevacr",
		"restart rg-acme-dev/tensora-acme-dev-count-api",
	}, tr.azure.calls)

	// no Dockerfile in the project, so the container definition is rendered
	build := tr.docker.builds[0]
	require.Equal(t, filepath.Join(tr.project.Path, ".tcinfra", "dev", "Dockerfile"), build.DockerfilePath)
	contents, err := os.ReadFile(build.DockerfilePath)
	require.NoError(t, err)
	require.Contains(t, string(contents), "EXPOSE 8000")
}

func TestDeployUsesProjectDockerfile(t *testing.T) {
	tr := newTestRunner(t)
	require.NoError(t, os.WriteFile(filepath.Join(tr.project.Path, "Dockerfile"), []byte("FROM scratch\n"), 0600))
	tr.project.Docker.BuildArgs = map[string]string{"B": "2", "A": "1"}

	_, err := tr.runner.Run(context.Background(), []StepName{StepBuild})
	require.NoError(t, err)

	build := tr.docker.builds[0]
	require.Equal(t, tr.project.DockerfilePath(), build.DockerfilePath)
	require.Equal(t, []string{"A=1", "B=2"}, build.BuildArgs)
}

func TestFirstFailureAborts(t *testing.T) {
	tr := newTestRunner(t)
	buildErr := errors.New("docker daemon not running")
	tr.docker.buildErr = buildErr

	result, err := tr.runner.Run(context.Background(), DeploySteps(true))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	require.Equal(t, StepBuild, stepErr.Step)
	require.ErrorIs(t, err, buildErr)
	require.Equal(t, "step 'build' failed: docker daemon not running", err.Error())

	require.Len(t, result.Steps, 1)
	require.Equal(t, output.StepFailed, result.Steps[0].Status)
	require.NotContains(t, tr.azure.calls, "restart rg-acme-dev/tensora-acme-dev-count-api")
}

func TestProvisionFailureStopsRun(t *testing.T) {
	tr := newTestRunner(t)
	tr.provider.applyFn = func() (*provisioning.DeployResult, error) {
		return nil, errors.New("apply failed")
	}

	_, err := tr.runner.Run(context.Background(), UpSteps(false))
	require.ErrorContains(t, err, "step 'provision' failed")
	require.Empty(t, tr.docker.calls)
}

func TestWaitUsesClock(t *testing.T) {
	tr := newTestRunner(t)
	delay := project.Duration(30 * time.Second)
	tr.project.RestartDelay = &delay

	done := make(chan error)
	go func() {
		_, err := tr.runner.Run(context.Background(), []StepName{StepWait})
		done <- err
	}()

	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			return
		default:
			tr.clock.Add(time.Second)
		}
	}
}

func TestWaitCancelled(t *testing.T) {
	tr := newTestRunner(t)
	delay := project.Duration(time.Hour)
	tr.project.RestartDelay = &delay

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.runner.Run(ctx, []StepName{StepWait})
	require.ErrorIs(t, err, context.Canceled)
}

func TestUnknownStep(t *testing.T) {
	tr := newTestRunner(t)
	_, err := tr.runner.Run(context.Background(), []StepName{"migrate"})
	require.ErrorContains(t, err, "unknown step 'migrate'")
}

func TestSteps(t *testing.T) {
	require.Equal(t, []StepName{StepProvision}, ProvisionSteps())
	require.Equal(t, []StepName{StepBuild, StepPush, StepWait, StepRestart}, DeploySteps(false))
	require.Equal(t,
		[]StepName{StepProvision, StepBuild, StepPush, StepWait, StepRestart, StepHealth},
		UpSteps(true))
}

func TestImageTag(t *testing.T) {
	mockClock := clock.NewMock()
	mockClock.Set(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	getenv := func(values map[string]string) func(string) string {
		return func(key string) string { return values[key] }
	}

	require.Equal(t, "v1", ImageTag(" v1 ", getenv(map[string]string{"GITHUB_SHA": "abcdef0123"}), mockClock))
	require.Equal(t, "abcdef0", ImageTag("", getenv(map[string]string{"GITHUB_SHA": "abcdef0123"}), mockClock))
	require.Equal(t, "abc", ImageTag("", getenv(map[string]string{"GITHUB_SHA": "abc"}), mockClock))
	require.Equal(t, "20260102030405", ImageTag("", getenv(nil), mockClock))

	require.Equal(t, "r.azurecr.io/count-api:1", ImageReference("r.azurecr.io/", "count-api", "1"))
}

func TestDeployKeepsWebAppTag(t *testing.T) {
	tr := newTestRunner(t)
	tr.env.SetOutput(stack.OutputRegistryLoginServer, "localhost:5000")

	result, err := tr.runner.Run(context.Background(), DeploySteps(false))
	require.NoError(t, err)
	require.Equal(t, "localhost:5000/count-api:20260314092653", result.Image)

	require.Equal(t, []string{
		"tag localhost:5000/count-api:20260314092653 localhost:5000/count-api:latest",
		"push localhost:5000/count-api:latest",
	}, tr.docker.calls[len(tr.docker.calls)-2:])

	// the web app keeps following 'latest', so the run tag is not recorded as the desired image
	_, pinned := tr.env.Values["TC_IMAGE_TAG"]
	require.False(t, pinned)
}

func TestWaitDisabled(t *testing.T) {
	tr := newTestRunner(t)
	require.Equal(t, time.Duration(0), tr.project.RestartWait())

	start := tr.clock.Now()
	_, err := tr.runner.Run(context.Background(), []StepName{StepWait})
	require.NoError(t, err)
	require.Equal(t, start, tr.clock.Now())
}
