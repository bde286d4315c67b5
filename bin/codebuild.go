package main

import (
	"fmt"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awscodebuild"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/jsii-runtime-go"

	"github.com/30Piraten/ecs-pipeline/topology"
)

// CodeBuild related resources
func createCodeBuildResources(resources *PipelineResources) error {
	resources.projects = make(map[string]awscodebuild.IProject, len(resources.topology.Projects))

	for _, p := range resources.topology.Projects {
		env, err := buildEnvironmentVariables(resources, p)
		if err != nil {
			return err
		}

		role := createCodeBuildRole(resources.stack, p)
		project := createCodeBuildProject(resources.stack, p, role, env)
		resources.projects[p.Name] = project
	}
	return nil
}

func createCodeBuildRole(stack awscdk.Stack, p topology.BuildProject) awsiam.Role {
	role := awsiam.NewRole(stack, jsii.String(p.Name+"Role"), &awsiam.RoleProps{
		AssumedBy: awsiam.NewServicePrincipal(jsii.String("codebuild.amazonaws.com"), nil),
	})

	for _, st := range p.Policy {
		role.AddToPolicy(awsiam.NewPolicyStatement(&awsiam.PolicyStatementProps{
			Effect:    awsiam.Effect_ALLOW,
			Actions:   jsii.Strings(st.Actions...),
			Resources: jsii.Strings(st.Resources...),
		}))
	}

	return role
}

func createCodeBuildProject(stack awscdk.Stack, p topology.BuildProject, role awsiam.IRole,
	env *map[string]*awscodebuild.BuildEnvironmentVariable) awscodebuild.PipelineProject {
	return awscodebuild.NewPipelineProject(stack, jsii.String(p.Name), &awscodebuild.PipelineProjectProps{
		BuildSpec: awscodebuild.BuildSpec_FromSourceFilename(jsii.String(p.BuildSpec)),
		Role:      role,
		Environment: &awscodebuild.BuildEnvironment{
			ComputeType:          computeType(p.Compute),
			BuildImage:           awscodebuild.LinuxBuildImage_FromCodeBuildImageId(jsii.String(p.Image)),
			Privileged:           jsii.Bool(p.Privileged),
			EnvironmentVariables: env,
		},
		Timeout: awscdk.Duration_Minutes(jsii.Number(15)),
	})
}

// buildEnvironmentVariables turns literals into plain values and resolved
// references into tokens of the imported collaborators.
func buildEnvironmentVariables(resources *PipelineResources, p topology.BuildProject) (*map[string]*awscodebuild.BuildEnvironmentVariable, error) {
	if len(p.Env) == 0 {
		return nil, nil
	}

	vars := make(map[string]*awscodebuild.BuildEnvironmentVariable, len(p.Env))
	for _, name := range p.EnvNames() {
		value := p.Env[name]
		if lit, ok := value.Literal(); ok {
			vars[name] = &awscodebuild.BuildEnvironmentVariable{Value: jsii.String(lit)}
			continue
		}

		ref, _ := value.Ref()
		var token *string
		switch ref.Kind {
		case topology.RefRegistryURI:
			if resources.imageRepo == nil {
				return nil, fmt.Errorf("build project %q: %s references a registry that was not imported", p.Name, name)
			}
			token = resources.imageRepo.RepositoryUri()
		case topology.RefBucketName:
			if resources.buildBucket == nil {
				return nil, fmt.Errorf("build project %q: %s references a bucket that was not imported", p.Name, name)
			}
			token = resources.buildBucket.BucketName()
		default:
			return nil, fmt.Errorf("build project %q: %s has unknown reference kind %q", p.Name, name, ref.Kind)
		}
		vars[name] = &awscodebuild.BuildEnvironmentVariable{Value: token}
	}
	return &vars, nil
}

func computeType(size topology.ComputeSize) awscodebuild.ComputeType {
	switch size {
	case topology.ComputeSmall:
		return awscodebuild.ComputeType_SMALL
	case topology.ComputeMedium:
		return awscodebuild.ComputeType_MEDIUM
	default:
		return awscodebuild.ComputeType_LARGE
	}
}
