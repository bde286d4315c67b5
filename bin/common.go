package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsec2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecr"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsecs"
	"github.com/aws/aws-cdk-go/awscdk/v2/awselasticloadbalancingv2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awss3"
	"github.com/aws/aws-cdk-go/awscdk/v2/awssecretsmanager"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/topology"
)

type PipelineStackProps struct {
	awscdk.StackProps
	Topology topology.Topology
}

func initializeStack(scope constructs.Construct, id string, props *PipelineStackProps) awscdk.Stack {
	var sprops awscdk.StackProps
	if props != nil {
		sprops = props.StackProps
	}
	return awscdk.NewStack(scope, &id, &sprops)
}

// createSourceSecret imports the token's secret by name. Only a reference
// lands in the template; the value is read when the source action runs.
func createSourceSecret(stack awscdk.Stack, ref topology.SecretRef) awssecretsmanager.ISecret {
	return awssecretsmanager.Secret_FromSecretNameV2(stack,
		jsii.String("GitHubTokenSecret"),
		jsii.String(ref.Store))
}

func createArtifactBucket(stack awscdk.Stack) awss3.IBucket {
	return awss3.NewBucket(stack, jsii.String("PipelineArtifactBucket"), &awss3.BucketProps{
		AutoDeleteObjects: jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		Encryption:        awss3.BucketEncryption_S3_MANAGED,
		BlockPublicAccess: awss3.BlockPublicAccess_BLOCK_ALL(),
		EnforceSSL:        jsii.Bool(true),
		Versioned:         jsii.Bool(true),
	})
}

func importRegistry(stack awscdk.Stack, r *topology.Registry) awsecr.IRepository {
	return awsecr.Repository_FromRepositoryName(stack, jsii.String("ImageRepository"), jsii.String(r.RepositoryName))
}

func importBuildBucket(stack awscdk.Stack, o *topology.ObjectStore) awss3.IBucket {
	return awss3.Bucket_FromBucketName(stack, jsii.String("BuildBucket"), jsii.String(o.BucketName))
}

func serviceArn(stack awscdk.Stack, front topology.ServiceFront) *string {
	return stack.FormatArn(&awscdk.ArnComponents{
		Service:      jsii.String("ecs"),
		Resource:     jsii.String("service"),
		ResourceName: jsii.String(front.ClusterName + "/" + front.ServiceName),
		ArnFormat:    awscdk.ArnFormat_SLASH_RESOURCE_NAME,
	})
}

// importServices resolves the compute service fronts by target name.
func importServices(stack awscdk.Stack, fronts map[string]topology.ServiceFront) map[string]awsecs.IBaseService {
	services := make(map[string]awsecs.IBaseService, len(fronts))
	for target, front := range fronts {
		id := fmt.Sprintf("Service-%s", target)
		services[target] = awsecs.BaseService_FromServiceArnWithCluster(stack, jsii.String(id), serviceArn(stack, front))
	}
	return services
}

func importTargetGroup(stack awscdk.Stack, id, arn string) awselasticloadbalancingv2.IApplicationTargetGroup {
	return awselasticloadbalancingv2.ApplicationTargetGroup_FromTargetGroupAttributes(stack, jsii.String(id),
		&awselasticloadbalancingv2.TargetGroupAttributes{
			TargetGroupArn: jsii.String(arn),
		})
}

func importListener(stack awscdk.Stack, id, arn string, sg awsec2.ISecurityGroup) awselasticloadbalancingv2.IApplicationListener {
	return awselasticloadbalancingv2.ApplicationListener_FromApplicationListenerAttributes(stack, jsii.String(id),
		&awselasticloadbalancingv2.ApplicationListenerAttributes{
			ListenerArn:   jsii.String(arn),
			SecurityGroup: sg,
		})
}
