package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/config"
	"github.com/30Piraten/ecs-pipeline/topology"
)

// NewPipelineStack synthesizes an assembled topology. The topology has
// already been validated, so errors here mean the two layers disagree.
func NewPipelineStack(scope constructs.Construct, id string, props *PipelineStackProps) (awscdk.Stack, error) {
	stack := initializeStack(scope, id, props)
	topo := props.Topology
	awscdk.Tags_Of(stack).Add(jsii.String("pipeline"), jsii.String(topo.Pipeline.Name()), nil)

	resources := &PipelineResources{
		stack:          stack,
		topology:       topo,
		artifactBucket: createArtifactBucket(stack),
	}

	source, _ := topo.Pipeline.Stage(topology.StageSource)
	resources.sourceSecret = createSourceSecret(stack, source.Actions[0].Source.Token.Ref())

	if docker, ok := topo.Project(topology.DockerBuildProject); ok {
		if ref, ok := docker.Env[topology.EnvImageRepoURI].Ref(); ok {
			resources.imageRepo = importRegistry(stack, &topology.Registry{RepositoryName: ref.Target})
		}
		if ref, ok := docker.Env[topology.EnvBucket].Ref(); ok {
			resources.buildBucket = importBuildBucket(stack, &topology.ObjectStore{BucketName: ref.Target})
		}
	}

	if topo.Notification != nil {
		resources.alarmTopic = createMonitoringResources(stack, topo.Notification)
	}

	if err := createCodeBuildResources(resources); err != nil {
		return nil, err
	}
	if err := createAlarms(resources); err != nil {
		return nil, err
	}

	resources.services = importServices(stack, topo.Services)
	if topo.DeploymentGroup != nil {
		createCodeDeployResources(resources)
	}

	pipeline, err := createPipelineResources(resources)
	if err != nil {
		return nil, err
	}

	if topo.Dashboard != nil {
		createDashboard(stack, topo.Dashboard)
	}
	if topo.Notification != nil {
		createFailureRule(stack, topo.Notification, resources.alarmTopic)
	}

	createStackOutputs(resources, pipeline)
	return stack, nil
}

func main() {
	defer jsii.Close()

	cfg, err := config.Load("")
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	topo, err := cfg.Assemble()
	if err != nil {
		logger.Error("failed to assemble pipeline", "version", cfg.Pipeline.Version, "error", err)
		os.Exit(1)
	}
	logger.Info("assembled pipeline",
		"pipeline", topo.Pipeline.Name(),
		"version", int(topo.Version),
		"stages", topo.Pipeline.StageNames())

	app := awscdk.NewApp(nil)
	if _, err := NewPipelineStack(app, cfg.Stack.Name, &PipelineStackProps{
		StackProps: awscdk.StackProps{
			Env: env(cfg),
		},
		Topology: topo,
	}); err != nil {
		logger.Error("failed to build stack", "stack", cfg.Stack.Name, "error", err)
		os.Exit(1)
	}

	app.Synth(nil)
}

func env(cfg *config.Config) *awscdk.Environment {
	e := &awscdk.Environment{
		Region: jsii.String(cfg.Stack.Region),
	}
	if cfg.Stack.Account != "" {
		e.Account = jsii.String(cfg.Stack.Account)
	}
	return e
}
