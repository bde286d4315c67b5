package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodedeploy"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/topology"
)

// CodeDeploy related resources
func createCodeDeployResources(resources *PipelineResources) {
	dg := resources.topology.DeploymentGroup
	stack := resources.stack

	codeDeployApp := awscodedeploy.NewEcsApplication(stack, jsii.String("EcsDeployApp"), &awscodedeploy.EcsApplicationProps{
		ApplicationName: jsii.String(dg.Application),
	})

	deploymentConfig := createDeploymentConfig(stack, dg.TrafficShift)

	listenerSG := awsec2.SecurityGroup_FromSecurityGroupId(stack, jsii.String("ListenerSecurityGroup"),
		jsii.String(dg.Service.SecurityGroupID), nil)

	blueGreen := &awscodedeploy.EcsBlueGreenDeploymentConfig{
		BlueTargetGroup:  importTargetGroup(stack, "BlueTargetGroup", dg.BlueTargetGroup),
		GreenTargetGroup: importTargetGroup(stack, "GreenTargetGroup", dg.GreenTargetGroup),
		Listener:         importListener(stack, "ProductionListener", dg.Listener, listenerSG),
		TestListener:     importListener(stack, "TestListener", dg.TestListener, listenerSG),
	}
	if dg.TerminationWait > 0 {
		blueGreen.TerminationWaitTime = awscdk.Duration_Minutes(jsii.Number(dg.TerminationWait.Minutes()))
	}
	if dg.ApprovalWait > 0 {
		blueGreen.DeploymentApprovalWaitTime = awscdk.Duration_Minutes(jsii.Number(dg.ApprovalWait.Minutes()))
	}

	resources.deploymentGroup = createDeploymentGroup(stack, dg, codeDeployApp, deploymentConfig,
		resources.services[topology.TargetProduction], blueGreen)
}

// createDeploymentConfig registers the linear traffic-shifting policy.
func createDeploymentConfig(stack awscdk.Stack, shift topology.TrafficShift) awscodedeploy.IEcsDeploymentConfig {
	return awscodedeploy.NewEcsDeploymentConfig(stack, jsii.String("LinearDeploymentConfig"), &awscodedeploy.EcsDeploymentConfigProps{
		DeploymentConfigName: jsii.String(shift.ConfigName()),
		TrafficRouting: awscodedeploy.TrafficRouting_TimeBasedLinear(&awscodedeploy.TimeBasedLinearTrafficRoutingProps{
			Interval:   awscdk.Duration_Minutes(jsii.Number(shift.Interval.Minutes())),
			Percentage: jsii.Number(float64(shift.Percentage)),
		}),
	})
}

func createDeploymentGroup(stack awscdk.Stack, dg *topology.DeploymentGroup, app awscodedeploy.IEcsApplication,
	config awscodedeploy.IEcsDeploymentConfig, service awsecs.IBaseService,
	blueGreen *awscodedeploy.EcsBlueGreenDeploymentConfig) awscodedeploy.EcsDeploymentGroup {
	return awscodedeploy.NewEcsDeploymentGroup(stack, jsii.String("BGDeploymentGroup"),
		&awscodedeploy.EcsDeploymentGroupProps{
			Application:               app,
			DeploymentGroupName:       jsii.String(dg.Name),
			Service:                   service,
			BlueGreenDeploymentConfig: blueGreen,
			DeploymentConfig:          config,
			AutoRollback: &awscodedeploy.AutoRollbackConfig{
				FailedDeployment:  jsii.Bool(dg.AutoRollback.FailedDeployment),
				StoppedDeployment: jsii.Bool(dg.AutoRollback.StoppedDeployment),
			},
		})
}
