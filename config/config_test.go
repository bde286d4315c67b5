package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/30Piraten/ecs-pipeline/topology"
)

const testConfig = "testdata/pipeline.yaml"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "PipelineCdkStack", cfg.Stack.Name)
	assert.Equal(t, "us-east-1", cfg.Stack.Region)
	assert.Equal(t, topology.Version3, cfg.Version())
	assert.Empty(t, cfg.Source.Branch)
	assert.Empty(t, cfg.Source.Secret)
	assert.Equal(t, 10, cfg.Deployment.LinearPercentage)
	assert.Equal(t, time.Minute, cfg.Deployment.LinearInterval)
	assert.Equal(t, float64(300), cfg.Monitoring.BuildDurationMax)
	assert.Equal(t, float64(60), cfg.Monitoring.QueueDurationMax)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	cfg, err := Load(testConfig)
	require.NoError(t, err)

	assert.Equal(t, "PipelineCdkStackV3", cfg.Stack.Name)
	assert.Equal(t, "eu-west-1", cfg.Stack.Region)
	assert.Equal(t, "ecs-app", cfg.Pipeline.Name)
	assert.Equal(t, "ecs-app", cfg.Registry.RepositoryName)
	assert.Equal(t, "ecs-app-build-cache", cfg.ArtifactStore.BucketName)
	assert.Equal(t, "sg-0123456789abcdef0", cfg.Services.Production.SecurityGroupID)
	assert.Equal(t, "main", cfg.Source.Branch)
	assert.Equal(t, SecretConfig{Name: "github/token", Field: "github_token"}, cfg.Source.Secret)
	assert.Equal(t, 20, cfg.Deployment.LinearPercentage)
	assert.Equal(t, 3*time.Minute, cfg.Deployment.LinearInterval)
	assert.Equal(t, float64(600), cfg.Monitoring.BuildDurationMax)

	// Untouched keys keep their defaults.
	assert.Equal(t, float64(60), cfg.Monitoring.QueueDurationMax)
	assert.Equal(t, 5*time.Minute, cfg.Deployment.TerminationWait)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("PIPELINE__DEPLOYMENT__LINEAR_PERCENTAGE", "30")
	t.Setenv("PIPELINE__SOURCE__BRANCH", "release")
	t.Setenv("PIPELINE__STACK__REGION", "ap-southeast-2")

	cfg, err := Load(testConfig)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Deployment.LinearPercentage)
	assert.Equal(t, "release", cfg.Source.Branch)
	assert.Equal(t, "ap-southeast-2", cfg.Stack.Region)
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	t.Setenv(EnvConfigFile, testConfig)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ecs-app", cfg.Pipeline.Name)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("PIPELINE__PIPELINE__VERSION", "7")
	t.Setenv("PIPELINE__MONITORING__NOTIFICATION_EMAIL", "not-an-email")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.version")
	assert.Contains(t, err.Error(), "monitoring.notification_email")

	var cfgErr *topology.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestLoadWithOverrides_WinsOverEnv(t *testing.T) {
	t.Setenv("PIPELINE__STACK__REGION", "us-west-2")

	cfg, err := LoadWithOverrides(testConfig, map[string]any{"stack.region": "ap-south-1"})
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", cfg.Stack.Region)
	assert.Equal(t, "ecs-app", cfg.Pipeline.Name)
}

func TestFlagOverrides_OnlyExplicitFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	flags.String("region", "", "")
	flags.String("unmapped", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug", "--unmapped", "x"}))

	overrides := FlagOverrides(flags, map[string]string{
		"log-level": "logging.level",
		"region":    "stack.region",
	})
	assert.Equal(t, map[string]any{"logging.level": "debug"}, overrides)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"percentage too high", func(c *Config) { c.Deployment.LinearPercentage = 100 }, "deployment.linear_percentage"},
		{"interval not whole minutes", func(c *Config) { c.Deployment.LinearInterval = 90 * time.Second }, "deployment.linear_interval"},
		{"negative wait", func(c *Config) { c.Deployment.TerminationWait = -time.Second }, "deployment"},
		{"gauge max", func(c *Config) { c.Monitoring.QueueDurationMax = 0 }, "monitoring.queue_duration_max"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"stack name", func(c *Config) { c.Stack.Name = "" }, "stack.name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *topology.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestAssemble_FromFile(t *testing.T) {
	cfg, err := Load(testConfig)
	require.NoError(t, err)

	topo, err := cfg.Assemble()
	require.NoError(t, err)

	assert.Equal(t, "ecs-app", topo.Pipeline.Name())
	require.NotNil(t, topo.DeploymentGroup)
	assert.Equal(t, topology.TrafficShift{Percentage: 20, Interval: 3 * time.Minute}, topo.DeploymentGroup.TrafficShift)
	assert.Equal(t, float64(600), topo.Dashboard.Rows[0][2].Max)

	docker, ok := topo.Project(topology.DockerBuildProject)
	require.True(t, ok)
	region, _ := docker.Env[topology.EnvDefaultRegion].Literal()
	assert.Equal(t, "eu-west-1", region)
}

func TestAssemble_MissingCollaboratorFromDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Source.Owner = "30Piraten"
	cfg.Source.Repo = "pipeline"
	cfg.Source.Branch = "main"
	cfg.Source.Secret = SecretConfig{Name: "github/token", Field: "github_token"}

	_, err := cfg.Assemble()
	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "registry", cfgErr.Field)

	cfg.Pipeline.Version = int(topology.Version1)
	_, err = cfg.Assemble()
	assert.NoError(t, err)
}

func TestAssemble_Through(t *testing.T) {
	t.Setenv("PIPELINE__PIPELINE__THROUGH", topology.StageDeployTest)

	cfg, err := Load(testConfig)
	require.NoError(t, err)
	assert.Equal(t, topology.StageDeployTest, cfg.Options().Through)

	topo, err := cfg.Assemble()
	require.NoError(t, err)
	assert.Len(t, topo.Pipeline.Stages(), 4)
	assert.Nil(t, topo.DeploymentGroup)
}

func TestValidateFile_RejectsUnknownThrough(t *testing.T) {
	err := ValidateFile(writeYAML(t, "pipeline:\n  through: Deploy-Staging\n"))
	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
}

func TestCollaborators_EmptySectionsStayNil(t *testing.T) {
	cfg := Defaults()
	c := cfg.Collaborators()
	assert.Nil(t, c.Registry)
	assert.Nil(t, c.ArtifactStore)
	assert.Nil(t, c.TestService)
	assert.Nil(t, c.ProductionService)
	assert.Nil(t, c.GreenSlot)
	assert.True(t, c.SourceToken.IsZero())
}

func TestAssemble_SourceSecretIsNeverDefaulted(t *testing.T) {
	cfg, err := Load(writeYAML(t, "pipeline:\n  version: 1\nsource:\n  owner: 30Piraten\n  repo: pipeline\n  branch: main\n"))
	require.NoError(t, err)

	_, err = cfg.Assemble()
	require.Error(t, err)
	assert.ErrorIs(t, err, topology.ErrMissingCollaborator)

	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "source.secret", cfgErr.Field)
}

func TestAssemble_SourceBranchIsNeverDefaulted(t *testing.T) {
	cfg, err := Load(writeYAML(t, "pipeline:\n  version: 1\nsource:\n  owner: 30Piraten\n  repo: pipeline\n  secret:\n    name: github/token\n    field: github_token\n"))
	require.NoError(t, err)

	_, err = cfg.Assemble()
	var cfgErr *topology.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "source.repository", cfgErr.Field)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PIPELINE__SOURCE__OWNER=from-dotenv\n"), 0o600))
	t.Setenv("PIPELINE__SOURCE__OWNER", "")
	os.Unsetenv("PIPELINE__SOURCE__OWNER")

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-dotenv", os.Getenv("PIPELINE__SOURCE__OWNER"))

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "info", "warn", "error", "INFO"} {
		_, err := ParseLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
