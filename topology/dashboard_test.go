package topology

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fullDashboard(t *testing.T) DashboardSpec {
	t.Helper()
	topo, err := Assemble(Version3, fullCollaborators(), Options{})
	require.NoError(t, err)
	require.NotNil(t, topo.Dashboard)
	return *topo.Dashboard
}

func TestDashboard_Layout(t *testing.T) {
	d := fullDashboard(t)
	require.Len(t, d.Rows, 1)

	row := d.Rows[0]
	kinds := make([]WidgetKind, len(row))
	for i, w := range row {
		kinds[i] = w.Kind
	}
	assert.Equal(t, []WidgetKind{WidgetPie, WidgetSingleValue, WidgetGauge, WidgetGauge, WidgetLine}, kinds)

	assert.Equal(t, []MetricBinding{
		{BuildNamespace, "SucceededBuilds", "Sum", 2592000},
		{BuildNamespace, "FailedBuilds", "Sum", 2592000},
		{BuildNamespace, "Builds", "Sum", 2592000},
		{BuildNamespace, "Duration", "Average", 3600},
		{BuildNamespace, "QueuedDuration", "Average", 3600},
		{BuildNamespace, "DownloadSourceDuration", "Maximum", 300},
	}, d.Bindings())

	assert.Equal(t, float64(300), row[2].Max)
	assert.Equal(t, float64(60), row[3].Max)
	assert.Equal(t, 30*24*time.Hour, row[0].Metrics[0].Period())
}

func TestDashboard_GaugeMaximaAreConfigurable(t *testing.T) {
	topo, err := Assemble(Version3, fullCollaborators(), Options{BuildDurationMax: 900, QueueDurationMax: 120})
	require.NoError(t, err)
	assert.Equal(t, float64(900), topo.Dashboard.Rows[0][2].Max)
	assert.Equal(t, float64(120), topo.Dashboard.Rows[0][3].Max)
}

func TestDashboard_ValidateRejectsEmptyRows(t *testing.T) {
	d := fullDashboard(t)
	require.NoError(t, d.Validate())

	d.Rows = append(d.Rows, []Widget{})
	err := d.Validate()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "dashboard.rows[1]", cfgErr.Field)

	topo, err := Assemble(Version3, fullCollaborators(), Options{})
	require.NoError(t, err)
	topo.Dashboard = &d
	assert.Error(t, topo.Validate())
}

func TestDashboard_ValidateRejectsWidgetsWithoutMetrics(t *testing.T) {
	d := DashboardSpec{Name: "d", Rows: [][]Widget{{{Kind: WidgetLine, Title: "Nothing"}}}}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nothing")
}

func TestWidgetWidth(t *testing.T) {
	assert.Equal(t, 24, WidgetWidth(0))
	assert.Equal(t, 24, WidgetWidth(1))
	assert.Equal(t, 4, WidgetWidth(5))
	assert.Equal(t, 1, WidgetWidth(24))
}

func TestDashboard_JSONRoundTrip(t *testing.T) {
	d := fullDashboard(t)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	var back DashboardSpec
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, d, back)
	assert.Equal(t, d.Bindings(), back.Bindings())
}

func TestDashboard_YAMLRoundTrip(t *testing.T) {
	d := fullDashboard(t)

	data, err := yaml.Marshal(d)
	require.NoError(t, err)

	var back DashboardSpec
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, d.Bindings(), back.Bindings())
}
