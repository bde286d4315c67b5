package main

import (
	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodedeploy"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssns"

	"github.com/30Piraten/ecs-pipeline/topology"
)

// PipelineResources carries the constructs shared between the stack's
// builders. Fields for features a version does not declare stay nil.
type PipelineResources struct {
	stack    awscdk.Stack
	topology topology.Topology

	sourceSecret   awssecretsmanager.ISecret
	artifactBucket awss3.IBucket
	imageRepo      awsecr.IRepository
	buildBucket    awss3.IBucket
	alarmTopic     awssns.ITopic

	projects        map[string]awscodebuild.IProject
	services        map[string]awsecs.IBaseService
	deploymentGroup awscodedeploy.IEcsDeploymentGroup
}
