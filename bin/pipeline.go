package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipeline"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodepipelineactions"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/topology"
)

// Image build outputs the deploy actions read.
const (
	imageDefinitionsFile = "imagedefinitions.json"
	appSpecFile          = "appspec.yaml"
	taskDefinitionFile   = "taskdef.json"
)

// Pipeline related resources
func createPipelineResources(resources *PipelineResources) (awscodepipeline.Pipeline, error) {
	pipelineRole := createPipelineRole(resources.stack)

	// One construct per artifact name, shared by producer and consumers
	artifacts := make(map[string]awscodepipeline.Artifact)
	for name := range resources.topology.Pipeline.Artifacts() {
		artifacts[name] = awscodepipeline.NewArtifact(jsii.String(name), nil)
	}

	stages := make([]*awscodepipeline.StageProps, 0, len(resources.topology.Pipeline.Stages()))
	for _, s := range resources.topology.Pipeline.Stages() {
		stage, err := createStage(resources, s, artifacts)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	pipeline := createPipeline(resources, pipelineRole, stages)
	overrideApprovalTimeouts(pipeline, resources.topology.Pipeline)
	return pipeline, nil
}

func createPipelineRole(stack awscdk.Stack) awsiam.Role {
	return awsiam.NewRole(stack, jsii.String("CodePipelineRole"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codepipeline.amazonaws.com"), nil),
	})
}

func createPipeline(resources *PipelineResources, pipelineRole awsiam.IRole,
	stages []*awscodepipeline.StageProps) awscodepipeline.Pipeline {
	return awscodepipeline.NewPipeline(resources.stack, jsii.String("Pipeline"),
		&awscodepipeline.PipelineProps{
			PipelineName:     jsii.String(resources.topology.Pipeline.Name()),
			ArtifactBucket:   resources.artifactBucket,
			Role:             pipelineRole,
			Stages:           &stages,
			CrossAccountKeys: jsii.Bool(false),
		})
}

func createStage(resources *PipelineResources, s topology.Stage,
	artifacts map[string]awscodepipeline.Artifact) (*awscodepipeline.StageProps, error) {
	actions := make([]awscodepipeline.IAction, 0, len(s.Actions))
	for _, a := range s.Actions {
		action, err := createAction(resources, a, artifacts)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		actions = append(actions, action)
	}
	return &awscodepipeline.StageProps{
		StageName: jsii.String(s.Name),
		Actions:   &actions,
	}, nil
}

func createAction(resources *PipelineResources, a topology.Action,
	artifacts map[string]awscodepipeline.Artifact) (awscodepipeline.IAction, error) {
	var runOrder *float64
	if a.RunOrder > 0 {
		runOrder = jsii.Number(float64(a.RunOrder))
	}

	switch a.Kind {
	case topology.ActionSource:
		return createSourceAction(resources, a, artifacts[a.Outputs[0]]), nil

	case topology.ActionBuild:
		project, ok := resources.projects[a.Project]
		if !ok {
			return nil, fmt.Errorf("action %q: build project %q was not created", a.Name, a.Project)
		}
		outputs := make([]awscodepipeline.Artifact, 0, len(a.Outputs))
		for _, o := range a.Outputs {
			outputs = append(outputs, artifacts[o])
		}
		return awscodepipelineactions.NewCodeBuildAction(&awscodepipelineactions.CodeBuildActionProps{
			ActionName: jsii.String(a.Name),
			Project:    project,
			Input:      artifacts[a.Inputs[0]],
			Outputs:    &outputs,
			RunOrder:   runOrder,
		}), nil

	case topology.ActionDeploy:
		service, ok := resources.services[a.Target]
		if !ok {
			return nil, fmt.Errorf("action %q: no service for target %q", a.Name, a.Target)
		}
		return awscodepipelineactions.NewEcsDeployAction(&awscodepipelineactions.EcsDeployActionProps{
			ActionName: jsii.String(a.Name),
			Service:    service,
			ImageFile:  artifacts[a.Inputs[0]].AtPath(jsii.String(imageDefinitionsFile)),
			RunOrder:   runOrder,
		}), nil

	case topology.ActionApproval:
		props := &awscodepipelineactions.ManualApprovalActionProps{
			ActionName: jsii.String(a.Name),
			RunOrder:   runOrder,
		}
		if a.Approval != nil {
			if a.Approval.Information != "" {
				props.AdditionalInformation = jsii.String(a.Approval.Information)
			}
			if a.Approval.Notify && resources.alarmTopic != nil {
				props.NotificationTopic = resources.alarmTopic
			}
		}
		return awscodepipelineactions.NewManualApprovalAction(props), nil

	case topology.ActionBlueGreenDeploy:
		if resources.deploymentGroup == nil {
			return nil, fmt.Errorf("action %q: %w", a.Name, topology.ErrMissingDeploymentGroup)
		}
		input := artifacts[a.Inputs[0]]
		return awscodepipelineactions.NewCodeDeployEcsDeployAction(&awscodepipelineactions.CodeDeployEcsDeployActionProps{
			ActionName:                 jsii.String(a.Name),
			DeploymentGroup:            resources.deploymentGroup,
			AppSpecTemplateFile:        input.AtPath(jsii.String(appSpecFile)),
			TaskDefinitionTemplateFile: input.AtPath(jsii.String(taskDefinitionFile)),
			RunOrder:                   runOrder,
		}), nil
	}
	return nil, fmt.Errorf("action %q: unsupported kind %q", a.Name, a.Kind)
}

func createSourceAction(resources *PipelineResources, a topology.Action,
	output awscodepipeline.Artifact) awscodepipeline.IAction {
	repo := a.Source.Repository
	token := a.Source.Token.Ref()
	return awscodepipelineactions.NewGitHubSourceAction(&awscodepipelineactions.GitHubSourceActionProps{
		ActionName: jsii.String(a.Name),
		Owner:      jsii.String(repo.Owner),
		Repo:       jsii.String(repo.Repo),
		Branch:     jsii.String(repo.Branch),
		OauthToken: resources.sourceSecret.SecretValueFromJson(jsii.String(token.Field)),
		Output:     output,
		Trigger:    awscodepipelineactions.GitHubTrigger_WEBHOOK,
	})
}

// overrideApprovalTimeouts passes configured approval timeouts through to
// the pipeline declaration; the L2 action has no property for it.
func overrideApprovalTimeouts(pipeline awscodepipeline.Pipeline, spec topology.PipelineSpec) {
	cfn, ok := pipeline.Node().DefaultChild().(awscodepipeline.CfnPipeline)
	if !ok {
		return
	}
	for i, s := range spec.Stages() {
		for j, a := range s.Actions {
			if a.Kind != topology.ActionApproval || a.Approval == nil || a.Approval.Timeout == 0 {
				continue
			}
			path := fmt.Sprintf("Stages.%d.Actions.%d.TimeoutInMinutes", i, j)
			cfn.AddPropertyOverride(jsii.String(path), jsii.Number(float64(a.Approval.Timeout)))
		}
	}
}
