package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatchactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/topology"
)

// createAlarms declares the build failure alarms and points them at the
// alert topic. Run after createCodeBuildResources.
func createAlarms(resources *PipelineResources) error {
	for _, rule := range resources.topology.Alarms {
		project, ok := resources.projects[rule.Project]
		if !ok {
			return fmt.Errorf("alarm %q: unknown build project %q", rule.Name, rule.Project)
		}

		alarm := awscloudwatch.NewAlarm(resources.stack, jsii.String(rule.Name), &awscloudwatch.AlarmProps{
			AlarmName:          jsii.String(rule.Name),
			AlarmDescription:   jsii.String(rule.Description),
			Metric:             projectMetric(rule.Metric, project),
			Threshold:          jsii.Number(rule.Threshold),
			EvaluationPeriods:  jsii.Number(float64(rule.EvaluationPeriods)),
			ComparisonOperator: awscloudwatch.ComparisonOperator_GREATER_THAN_OR_EQUAL_TO_THRESHOLD,
			// No builds in a period is not a failure.
			TreatMissingData: awscloudwatch.TreatMissingData_NOT_BREACHING,
		})
		if resources.alarmTopic != nil {
			alarm.AddAlarmAction(awscloudwatchactions.NewSnsAction(resources.alarmTopic))
		}
	}
	return nil
}

func projectMetric(m topology.MetricBinding, project awscodebuild.IProject) awscloudwatch.Metric {
	return awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
		Namespace:  jsii.String(m.Namespace),
		MetricName: jsii.String(m.Metric),
		Statistic:  jsii.String(m.Statistic),
		Period:     awscdk.Duration_Seconds(jsii.Number(float64(m.PeriodSeconds))),
		DimensionsMap: &map[string]*string{
			topology.ProjectDimension: project.ProjectName(),
		},
		Unit: awscloudwatch.Unit_COUNT,
	})
}
