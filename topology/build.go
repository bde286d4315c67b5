package topology

import (
	"fmt"
	"sort"
	"strings"
)

type ComputeSize string

const (
	ComputeSmall  ComputeSize = "SMALL"
	ComputeMedium ComputeSize = "MEDIUM"
	ComputeLarge  ComputeSize = "LARGE"
)

// ImageStandard7 is the managed build image both reference projects run on.
const ImageStandard7 = "aws/codebuild/standard:7.0"

// BuildProject is a managed build job. BuildSpec is resolved relative to
// the checked-out source artifact.
type BuildProject struct {
	Name       string              `json:"name" yaml:"name"`
	BuildSpec  string              `json:"buildSpec" yaml:"buildSpec"`
	Image      string              `json:"image" yaml:"image"`
	Privileged bool                `json:"privileged" yaml:"privileged"`
	Compute    ComputeSize         `json:"compute" yaml:"compute"`
	Env        map[string]EnvValue `json:"env,omitempty" yaml:"env,omitempty"`
	Policy     []PolicyStatement   `json:"policy,omitempty" yaml:"policy,omitempty"`
}

// EnvNames returns the environment variable names in sorted order.
func (p BuildProject) EnvNames() []string {
	names := make([]string, 0, len(p.Env))
	for name := range p.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p BuildProject) validate() error {
	if p.Name == "" {
		return &ConfigError{Field: "build.name", Reason: "required"}
	}
	if p.BuildSpec == "" {
		return &ConfigError{Field: "build." + p.Name + ".buildSpec", Reason: "required"}
	}
	for _, st := range p.Policy {
		if err := st.Validate(); err != nil {
			return fmt.Errorf("build project %q: %w", p.Name, err)
		}
	}
	return nil
}

// PolicyStatement is an allow statement over an enumerated action list.
type PolicyStatement struct {
	Actions   []string `json:"actions" yaml:"actions"`
	Resources []string `json:"resources" yaml:"resources"`
}

// Validate rejects service-wide or global wildcard grants.
func (s PolicyStatement) Validate() error {
	if len(s.Actions) == 0 {
		return fmt.Errorf("policy statement has no actions")
	}
	for _, a := range s.Actions {
		if strings.Contains(a, "*") {
			return fmt.Errorf("%w: %q", ErrWildcardAction, a)
		}
	}
	return nil
}

var (
	RegistryPushActions = []string{
		"ecr:BatchCheckLayerAvailability",
		"ecr:CompleteLayerUpload",
		"ecr:GetAuthorizationToken",
		"ecr:InitiateLayerUpload",
		"ecr:PutImage",
		"ecr:UploadLayerPart",
		"ecr:BatchGetImage",
	}
	ObjectStoreWriteActions = []string{
		"s3:PutObject",
		"s3:PutObjectAcl",
	}
)

// Build environment variable names handed to the image build.
const (
	EnvImageTag      = "IMAGE_TAG"
	EnvImageRepoURI  = "IMAGE_REPO_URI"
	EnvBucket        = "AWS_S3_BUCKET"
	EnvDefaultRegion = "AWS_DEFAULT_REGION"
)

const (
	UnitTestProject    = "UnitTest"
	DockerBuildProject = "DockerBuild"
)

func unitTestProject() BuildProject {
	return BuildProject{
		Name:       UnitTestProject,
		BuildSpec:  "buildspec_test.yml",
		Image:      ImageStandard7,
		Privileged: true,
		Compute:    ComputeLarge,
	}
}

func dockerBuildProject(c Collaborators) BuildProject {
	actions := make([]string, 0, len(RegistryPushActions)+len(ObjectStoreWriteActions))
	actions = append(actions, RegistryPushActions...)
	actions = append(actions, ObjectStoreWriteActions...)

	return BuildProject{
		Name:       DockerBuildProject,
		BuildSpec:  "buildspec_docker.yml",
		Image:      ImageStandard7,
		Privileged: true,
		Compute:    ComputeLarge,
		Env: map[string]EnvValue{
			EnvImageTag:      Literal("latest"),
			EnvImageRepoURI:  Resolved(Reference{Kind: RefRegistryURI, Target: c.Registry.RepositoryName}),
			EnvBucket:        Resolved(Reference{Kind: RefBucketName, Target: c.ArtifactStore.BucketName}),
			EnvDefaultRegion: Literal(c.Region),
		},
		Policy: []PolicyStatement{{
			Actions:   actions,
			Resources: []string{"*"},
		}},
	}
}
