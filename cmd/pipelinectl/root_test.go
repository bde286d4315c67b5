package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/30Piraten/ecs-pipeline/internal/ops"
	"github.com/30Piraten/ecs-pipeline/topology"
)

const fullConfig = "../../config/testdata/pipeline.yaml"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDescribe_YAML(t *testing.T) {
	out, _, err := run(t, "describe", "--config", fullConfig)
	require.NoError(t, err)

	var view struct {
		Version  int    `yaml:"version"`
		Pipeline string `yaml:"pipeline"`
		Stages   []struct {
			Name string `yaml:"name"`
		} `yaml:"stages"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, 3, view.Version)
	assert.Equal(t, "ecs-app", view.Pipeline)
	require.Len(t, view.Stages, 5)
	assert.Equal(t, topology.StageProduction, view.Stages[4].Name)

	// Secret values never appear, only the reference.
	assert.Contains(t, out, "secret:github/token#github_token")
}

func TestDescribe_JSON(t *testing.T) {
	out, _, err := run(t, "describe", "--config", fullConfig, "-o", "json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "ecs-app", view["pipeline"])
	assert.Contains(t, view, "deploymentGroup")
}

func TestDescribe_UnknownFormat(t *testing.T) {
	_, _, err := run(t, "describe", "--config", fullConfig, "-o", "toml")
	require.Error(t, err)
}

func TestValidate_Valid(t *testing.T) {
	out, _, err := run(t, "validate", "--config", fullConfig)
	require.NoError(t, err)
	assert.Contains(t, out, "pipeline ecs-app (version 3) is valid")
	assert.Contains(t, out, "Source -> Code-Quality-Testing -> Docker-Push-ECR -> Deploy-Test -> Deploy-Production")
}

func TestValidate_ReportsAllMissingCollaborators(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  version: 2
source:
  owner: 30Piraten
  repo: pipeline
`)
	_, _, err := run(t, "validate", "--config", path)
	require.Error(t, err)

	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, topology.ErrMissingCollaborator)
	assert.Contains(t, err.Error(), "registry")
	assert.Contains(t, err.Error(), "artifact_store")
	assert.Contains(t, err.Error(), "source.secret")
	assert.Contains(t, err.Error(), "source.repository")
}

func TestValidate_VersionOne(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  version: 1
source:
  owner: 30Piraten
  repo: pipeline
  branch: main
  secret:
    name: github/token
    field: github_token
`)
	out, _, err := run(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Source -> Code-Quality-Testing\n")
}

func TestValidate_ThroughDeployTest(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  version: 3
  through: Deploy-Test
source:
  owner: 30Piraten
  repo: pipeline
  branch: main
  secret:
    name: github/token
    field: github_token
registry:
  repository_name: ecs-app
artifact_store:
  bucket_name: ecs-app-build-cache
services:
  test:
    cluster_name: test-cluster
    service_name: ecs-app-test
monitoring:
  notification_email: ops@example.com
`)
	out, _, err := run(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Source -> Code-Quality-Testing -> Docker-Push-ECR -> Deploy-Test\n")
}

func TestDashboard(t *testing.T) {
	out, _, err := run(t, "dashboard", "--config", fullConfig)
	require.NoError(t, err)

	var dash topology.DashboardSpec
	require.NoError(t, json.Unmarshal([]byte(out), &dash))
	require.Len(t, dash.Rows, 1)
	require.Len(t, dash.Rows[0], 5)
	assert.Equal(t, topology.WidgetGauge, dash.Rows[0][2].Kind)
	assert.Equal(t, float64(600), dash.Rows[0][2].Max)
}

func TestDashboard_NotInVersionOne(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  version: 1
source:
  owner: 30Piraten
  repo: pipeline
  branch: main
  secret:
    name: github/token
    field: github_token
`)
	_, _, err := run(t, "dashboard", "--config", path)
	require.Error(t, err)
}

func TestLogLevelFlag(t *testing.T) {
	_, stderr, err := run(t, "describe", "--config", fullConfig, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "assembled pipeline")

	_, _, err = run(t, "describe", "--config", fullConfig, "--log-level", "loud")
	require.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	_, _, err := run(t, "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestAWSCommands_ClientError(t *testing.T) {
	failing := func(context.Context, string) (*ops.Clients, error) {
		return nil, errors.New("no credentials")
	}
	for _, args := range [][]string{
		{"approve"},
		{"watch-deployment", "d-123"},
		{"check-secret"},
		{"artifacts"},
	} {
		t.Run(args[0], func(t *testing.T) {
			cmd := newCommand(failing)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(append(args, "--config", fullConfig))

			err := cmd.ExecuteContext(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "no credentials")
		})
	}
}

func TestApprove_UnknownStage(t *testing.T) {
	called := false
	cmd := newCommand(func(context.Context, string) (*ops.Clients, error) {
		called = true
		return &ops.Clients{}, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"approve", "--config", fullConfig, "--stage", "Deploy-Staging"})

	require.Error(t, cmd.ExecuteContext(context.Background()))
	assert.False(t, called)
}

func TestWatchDeployment_RequiresID(t *testing.T) {
	_, _, err := run(t, "watch-deployment", "--config", fullConfig)
	require.Error(t, err)
}
