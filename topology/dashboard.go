package topology

import (
	"fmt"
	"time"
)

type WidgetKind string

const (
	WidgetPie         WidgetKind = "pie"
	WidgetSingleValue WidgetKind = "single-value"
	WidgetGauge       WidgetKind = "gauge"
	WidgetLine        WidgetKind = "line"
)

// BuildNamespace is the provider namespace for managed build metrics.
const BuildNamespace = "AWS/CodeBuild"

// MetricBinding is the exact tuple a widget reads.
type MetricBinding struct {
	Namespace     string `json:"namespace" yaml:"namespace"`
	Metric        string `json:"metric" yaml:"metric"`
	Statistic     string `json:"statistic" yaml:"statistic"`
	PeriodSeconds int    `json:"periodSeconds" yaml:"periodSeconds"`
}

func (m MetricBinding) Period() time.Duration {
	return time.Duration(m.PeriodSeconds) * time.Second
}

func (m MetricBinding) String() string {
	return fmt.Sprintf("%s/%s %s @%s", m.Namespace, m.Metric, m.Statistic, m.Period())
}

type Widget struct {
	Kind    WidgetKind      `json:"kind" yaml:"kind"`
	Title   string          `json:"title" yaml:"title"`
	Metrics []MetricBinding `json:"metrics" yaml:"metrics"`
	// Max caps gauge widgets.
	Max float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// DashboardSpec is an ordered list of widget rows.
type DashboardSpec struct {
	Name string     `json:"name" yaml:"name"`
	Rows [][]Widget `json:"rows" yaml:"rows"`
}

// Bindings flattens every widget's metrics in row order.
func (d DashboardSpec) Bindings() []MetricBinding {
	var out []MetricBinding
	for _, row := range d.Rows {
		for _, w := range row {
			out = append(out, w.Metrics...)
		}
	}
	return out
}

// dashboardColumns is the width of one dashboard row.
const dashboardColumns = 24

// Validate rejects rows the grid cannot lay out and widgets that read
// nothing.
func (d DashboardSpec) Validate() error {
	for i, row := range d.Rows {
		field := fmt.Sprintf("dashboard.rows[%d]", i)
		switch {
		case len(row) == 0:
			return &ConfigError{Field: field, Reason: "row has no widgets"}
		case len(row) > dashboardColumns:
			return &ConfigError{Field: field, Reason: fmt.Sprintf("row has %d widgets, at most %d fit", len(row), dashboardColumns)}
		}
		for _, w := range row {
			if len(w.Metrics) == 0 {
				return &ConfigError{Field: field, Reason: fmt.Sprintf("widget %q has no metrics", w.Title)}
			}
		}
	}
	return nil
}

// WidgetWidth splits a row of n widgets evenly across the grid.
func WidgetWidth(n int) int {
	if n <= 0 {
		return dashboardColumns
	}
	return dashboardColumns / n
}

const (
	hour        = 60 * 60
	thirtyDays  = 30 * 24 * hour
	fiveMinutes = 5 * 60
)

func buildMetric(name, stat string, period int) MetricBinding {
	return MetricBinding{Namespace: BuildNamespace, Metric: name, Statistic: stat, PeriodSeconds: period}
}

func newDashboard(opts Options) DashboardSpec {
	return DashboardSpec{
		Name: opts.PipelineName + "-dashboard",
		Rows: [][]Widget{{
			{
				Kind:  WidgetPie,
				Title: "Build Successes vs Failures",
				Metrics: []MetricBinding{
					buildMetric("SucceededBuilds", "Sum", thirtyDays),
					buildMetric("FailedBuilds", "Sum", thirtyDays),
				},
			},
			{
				Kind:    WidgetSingleValue,
				Title:   "Total Builds",
				Metrics: []MetricBinding{buildMetric("Builds", "Sum", thirtyDays)},
			},
			{
				Kind:    WidgetGauge,
				Title:   "Average Build Duration",
				Metrics: []MetricBinding{buildMetric("Duration", "Average", hour)},
				Max:     opts.BuildDurationMax,
			},
			{
				Kind:    WidgetGauge,
				Title:   "Average Queue Wait",
				Metrics: []MetricBinding{buildMetric("QueuedDuration", "Average", hour)},
				Max:     opts.QueueDurationMax,
			},
			{
				Kind:    WidgetLine,
				Title:   "Checkout Duration",
				Metrics: []MetricBinding{buildMetric("DownloadSourceDuration", "Maximum", fiveMinutes)},
			},
		}},
	}
}
