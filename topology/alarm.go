package topology

import "fmt"

// AlarmRule raises the failure topic when Metric, scoped to one build
// project, reaches Threshold in each of EvaluationPeriods periods.
type AlarmRule struct {
	Name              string        `json:"name" yaml:"name"`
	Description       string        `json:"description" yaml:"description"`
	Project           string        `json:"project" yaml:"project"`
	Metric            MetricBinding `json:"metric" yaml:"metric"`
	Threshold         float64       `json:"threshold" yaml:"threshold"`
	EvaluationPeriods int           `json:"evaluationPeriods" yaml:"evaluationPeriods"`
}

// ProjectDimension scopes build metrics to a single project.
const ProjectDimension = "ProjectName"

func buildFailureAlarm(project string) AlarmRule {
	return AlarmRule{
		Name:              project + "FailureAlarm",
		Description:       fmt.Sprintf("Alert when the %s build fails", project),
		Project:           project,
		Metric:            buildMetric("FailedBuilds", "Sum", fiveMinutes),
		Threshold:         1,
		EvaluationPeriods: 1,
	}
}

func buildFailureAlarms(projects []BuildProject) []AlarmRule {
	rules := make([]AlarmRule, 0, len(projects))
	for _, p := range projects {
		rules = append(rules, buildFailureAlarm(p.Name))
	}
	return rules
}

func (r AlarmRule) validate(projects map[string]bool) error {
	field := "alarm." + r.Name
	switch {
	case !projects[r.Project]:
		return &ConfigError{Field: field + ".project", Reason: fmt.Sprintf("unknown build project %q", r.Project)}
	case r.Threshold <= 0:
		return &ConfigError{Field: field + ".threshold", Reason: "must be positive"}
	case r.EvaluationPeriods < 1:
		return &ConfigError{Field: field + ".evaluation_periods", Reason: "must be at least 1"}
	case r.Metric.PeriodSeconds <= 0:
		return &ConfigError{Field: field + ".metric", Reason: "period must be positive"}
	}
	return nil
}
