package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscloudwatch"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsevents"
	"github.com/aws/aws-cdk-go/awscdk/v2/awseventstargets"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssnssubscriptions"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/topology"
)

// Monitoring resources
func createMonitoringResources(stack awscdk.Stack, rule *topology.NotificationRule) awssns.ITopic {
	topic := awssns.NewTopic(stack, jsii.String("PipelineAlarmTopic"), &awssns.TopicProps{
		TopicName:   jsii.String(rule.Topic.Name),
		DisplayName: jsii.String(rule.Topic.DisplayName),
	})
	for _, email := range rule.Topic.Subscribers {
		topic.AddSubscription(awssnssubscriptions.NewEmailSubscription(jsii.String(email), nil))
	}
	return topic
}

// createFailureRule forwards terminal pipeline failures to the topic.
func createFailureRule(stack awscdk.Stack, rule *topology.NotificationRule, topic awssns.ITopic) awsevents.Rule {
	sources := jsii.Strings(rule.Filter.Sources...)
	detailTypes := jsii.Strings(rule.Filter.DetailTypes...)
	detail := make(map[string]interface{}, len(rule.Filter.Detail))
	for key, values := range rule.Filter.Detail {
		detail[key] = jsii.Strings(values...)
	}

	eventRule := awsevents.NewRule(stack, jsii.String("PipelineFailureRule"), &awsevents.RuleProps{
		RuleName:    jsii.String(rule.Name),
		Description: jsii.String("Notify when a pipeline execution fails"),
		EventPattern: &awsevents.EventPattern{
			Source:     sources,
			DetailType: detailTypes,
			Detail:     &detail,
		},
	})

	fields := make([]any, len(rule.Message.Paths))
	for i, p := range rule.Message.Paths {
		fields[i] = *awsevents.EventField_FromPath(jsii.String(p))
	}
	eventRule.AddTarget(awseventstargets.NewSnsTopic(topic, &awseventstargets.SnsTopicProps{
		Message: awsevents.RuleTargetInput_FromText(jsii.String(fmt.Sprintf(rule.Message.Format, fields...))),
	}))
	return eventRule
}

func createDashboard(stack awscdk.Stack, spec *topology.DashboardSpec) awscloudwatch.Dashboard {
	rows := make([]*[]awscloudwatch.IWidget, 0, len(spec.Rows))
	for _, row := range spec.Rows {
		if len(row) == 0 {
			continue
		}
		widgets := make([]awscloudwatch.IWidget, 0, len(row))
		width := topology.WidgetWidth(len(row))
		for _, w := range row {
			widgets = append(widgets, createWidget(w, width))
		}
		rows = append(rows, &widgets)
	}

	return awscloudwatch.NewDashboard(stack, jsii.String("PipelineDashboard"), &awscloudwatch.DashboardProps{
		DashboardName: jsii.String(spec.Name),
		Widgets:       &rows,
	})
}

func createWidget(w topology.Widget, width int) awscloudwatch.IWidget {
	metrics := make([]awscloudwatch.IMetric, 0, len(w.Metrics))
	for _, m := range w.Metrics {
		metrics = append(metrics, awscloudwatch.NewMetric(&awscloudwatch.MetricProps{
			Namespace:  jsii.String(m.Namespace),
			MetricName: jsii.String(m.Metric),
			Statistic:  jsii.String(m.Statistic),
			Period:     awscdk.Duration_Seconds(jsii.Number(float64(m.PeriodSeconds))),
			Label:      jsii.String(m.Metric),
		}))
	}

	title := jsii.String(w.Title)
	switch w.Kind {
	case topology.WidgetPie:
		return awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: title,
			Left:  &metrics,
			View:  awscloudwatch.GraphWidgetView_PIE,
			Width: jsii.Number(float64(width)),
		})
	case topology.WidgetSingleValue:
		return awscloudwatch.NewSingleValueWidget(&awscloudwatch.SingleValueWidgetProps{
			Title:   title,
			Metrics: &metrics,
			Width:   jsii.Number(float64(width)),
		})
	case topology.WidgetGauge:
		return awscloudwatch.NewGaugeWidget(&awscloudwatch.GaugeWidgetProps{
			Title:   title,
			Metrics: &metrics,
			Width:   jsii.Number(float64(width)),
			LeftYAxis: &awscloudwatch.YAxisProps{
				Min: jsii.Number(0),
				Max: jsii.Number(w.Max),
			},
		})
	default:
		return awscloudwatch.NewGraphWidget(&awscloudwatch.GraphWidgetProps{
			Title: title,
			Left:  &metrics,
			View:  awscloudwatch.GraphWidgetView_TIME_SERIES,
			Width: jsii.Number(float64(width)),
		})
	}
}
