package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/30Piraten/ecs-pipeline/topology"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValidateFile_Testdata(t *testing.T) {
	require.NoError(t, ValidateFile(testConfig))
}

func TestValidateFile_Empty(t *testing.T) {
	require.NoError(t, ValidateFile(writeYAML(t, "")))
}

func TestValidateFile_AcceptsNumbers(t *testing.T) {
	body := "pipeline:\n  version: 2\ndeployment:\n  linear_percentage: 20\n  approval_timeout_minutes: 90\nmonitoring:\n  build_duration_max: 450.5\n"
	require.NoError(t, ValidateFile(writeYAML(t, body)))
}

func TestValidateFile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"misspelled key", "source:\n  ownr: 30Piraten\n"},
		{"unknown section", "pipelines:\n  name: x\n"},
		{"version out of range", "pipeline:\n  version: 4\n"},
		{"percentage as string", "deployment:\n  linear_percentage: ten\n"},
		{"bad duration", "deployment:\n  linear_interval: soon\n"},
		{"bad arn", "green_slot:\n  listener_arn: listener/app/prod\n"},
		{"bad security group", "services:\n  production:\n    security_group_id: web\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFile(writeYAML(t, tt.body))
			require.Error(t, err)

			var cfgErr *topology.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestLoad_RejectsUnknownFileKeys(t *testing.T) {
	_, err := Load(writeYAML(t, "monitoring:\n  notification_emial: ops@example.com\n"))
	require.Error(t, err)
}

func TestValidateFile_Missing(t *testing.T) {
	require.Error(t, ValidateFile(filepath.Join(t.TempDir(), "absent.yaml")))
}
