package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/jsii-runtime-go"
)

func createStackOutputs(resources *PipelineResources, pipeline awscodepipeline.Pipeline) {
	stack := resources.stack

	awscdk.NewCfnOutput(stack, jsii.String("CodePipelineNameOutput"), &awscdk.CfnOutputProps{
		Value: pipeline.PipelineName(),
	})

	awscdk.NewCfnOutput(stack, jsii.String("ArtifactBucketOutput"), &awscdk.CfnOutputProps{
		Value: resources.artifactBucket.BucketName(),
	})

	for _, p := range resources.topology.Projects {
		awscdk.NewCfnOutput(stack, jsii.String(p.Name+"ProjectOutput"), &awscdk.CfnOutputProps{
			Value: resources.projects[p.Name].ProjectName(),
		})
	}

	if resources.deploymentGroup != nil {
		awscdk.NewCfnOutput(stack, jsii.String("DeploymentGroupOutput"), &awscdk.CfnOutputProps{
			Value: resources.deploymentGroup.DeploymentGroupName(),
		})
	}

	if resources.alarmTopic != nil {
		awscdk.NewCfnOutput(stack, jsii.String("AlarmTopicOutput"), &awscdk.CfnOutputProps{
			Value: resources.alarmTopic.TopicArn(),
		})
	}
}
