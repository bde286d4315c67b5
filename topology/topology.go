// Package topology assembles the declarative CI/CD pipeline model: stages,
// build projects, the blue/green deployment group, the dashboard and the
// failure notification path. It has no cloud dependencies; bin/ turns a
// Topology into a stack.
package topology

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version selects one of the reference topologies. Each is a superset of
// the one before.
type Version int

const (
	Version1 Version = iota + 1
	Version2
	Version3
)

func (v Version) Valid() bool { return v >= Version1 && v <= Version3 }

var referenceStages = []string{StageSource, StageUnitTest, StageDocker, StageDeployTest, StageProduction}

// Stages lists the stage names version v declares, in pipeline order.
func (v Version) Stages() []string {
	switch v {
	case Version1:
		return append([]string(nil), referenceStages[:2]...)
	case Version2:
		return append([]string(nil), referenceStages[:3]...)
	case Version3:
		return append([]string(nil), referenceStages...)
	}
	return nil
}

// Stage and action names of the reference topologies.
const (
	StageSource     = "Source"
	StageUnitTest   = "Code-Quality-Testing"
	StageDocker     = "Docker-Push-ECR"
	StageDeployTest = "Deploy-Test"
	StageProduction = "Deploy-Production"

	ActionGitHubSource = "GitHub_Source"
	ActionUnitTest     = "Unit-Test"
	ActionDockerBuild  = "Docker-Build"
	ActionDeployTest   = "Deploy-Test"
	ActionApprove      = "Manual-Approval"
	ActionBlueGreen    = "Deploy-Production"

	ArtifactSource   = "SourceOutput"
	ArtifactUnitTest = "UnitTestOutput"
	ArtifactDocker   = "DockerBuildOutput"

	TargetTest       = "test"
	TargetProduction = "production"
)

// Options are the tunables of the assembly. Zero values are filled from
// DefaultOptions by Assemble.
type Options struct {
	PipelineName     string
	TrafficShift     TrafficShift
	TerminationWait  time.Duration
	ApprovalWait     time.Duration
	ApprovalTimeout  int
	BuildDurationMax float64
	QueueDurationMax float64
	// Through names the last stage to declare. Empty declares every stage
	// of the version.
	Through string
}

func DefaultOptions() Options {
	return Options{
		PipelineName:     "CICD_Pipeline",
		TrafficShift:     TrafficShift{Percentage: 10, Interval: time.Minute},
		TerminationWait:  5 * time.Minute,
		BuildDurationMax: 300,
		QueueDurationMax: 60,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PipelineName == "" {
		o.PipelineName = d.PipelineName
	}
	if o.TrafficShift == (TrafficShift{}) {
		o.TrafficShift = d.TrafficShift
	}
	if o.BuildDurationMax == 0 {
		o.BuildDurationMax = d.BuildDurationMax
	}
	if o.QueueDurationMax == 0 {
		o.QueueDurationMax = d.QueueDurationMax
	}
	return o
}

// stageCount resolves Through against the stages of version v.
func (o Options) stageCount(v Version) (int, error) {
	names := v.Stages()
	if o.Through == "" {
		return len(names), nil
	}
	for i, name := range names {
		if name != o.Through {
			continue
		}
		if i == 0 {
			return 0, &ConfigError{Field: "pipeline.through", Reason: "a pipeline needs at least two stages"}
		}
		return i + 1, nil
	}
	return 0, &ConfigError{Field: "pipeline.through", Reason: fmt.Sprintf("%q is not a version %d stage", o.Through, v)}
}

// Topology is everything one stack version declares.
type Topology struct {
	Version  Version
	Pipeline PipelineSpec
	Projects []BuildProject
	// Services maps deploy targets to the service fronts they update.
	Services        map[string]ServiceFront
	DeploymentGroup *DeploymentGroup
	Dashboard       *DashboardSpec
	Notification    *NotificationRule
	// Alarms publish to the notification topic.
	Alarms []AlarmRule
}

// Project looks a build project up by name.
func (t Topology) Project(name string) (BuildProject, bool) {
	for _, p := range t.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return BuildProject{}, false
}

// Assemble builds the reference topology for version v, cut after
// opts.Through when it is set. It fails on the first missing collaborator
// or structural error and never returns a partial topology.
func Assemble(v Version, c Collaborators, opts Options) (Topology, error) {
	if !v.Valid() {
		return Topology{}, &ConfigError{Field: "pipeline.version", Reason: fmt.Sprintf("unknown version %d", v)}
	}
	n, err := opts.stageCount(v)
	if err != nil {
		return Topology{}, err
	}
	if errs := c.check(v, n); len(errs) > 0 {
		return Topology{}, errs[0]
	}
	opts = opts.withDefaults()

	t := Topology{Version: v}
	stages := []Stage{sourceStage(c), unitTestStage()}
	t.Projects = append(t.Projects, unitTestProject())

	if n >= 3 {
		stages = append(stages, dockerStage())
		t.Projects = append(t.Projects, dockerBuildProject(c))
	}

	if n >= 4 {
		t.Services = map[string]ServiceFront{TargetTest: *c.TestService}
		stages = append(stages, deployTestStage())
	}

	if n >= 5 {
		dg, err := newDeploymentGroup(c, opts)
		if err != nil {
			return Topology{}, err
		}
		t.DeploymentGroup = dg
		t.Services[TargetProduction] = *c.ProductionService
		stages = append(stages, productionStage(dg.Name, opts))
	}

	if v >= Version3 {
		dash := newDashboard(opts)
		t.Dashboard = &dash
		rule := newNotificationRule(opts.PipelineName, c.NotificationEmail)
		t.Notification = &rule
		t.Alarms = buildFailureAlarms(t.Projects)
	}

	p := NewPipelineSpec(opts.PipelineName)
	for _, s := range stages {
		if p, err = p.AddStage(s); err != nil {
			return Topology{}, err
		}
	}
	t.Pipeline = p

	if err := t.Validate(); err != nil {
		return Topology{}, err
	}
	return t, nil
}

// Validate checks the cross references between the pipeline and the other
// declared resources.
func (t Topology) Validate() error {
	if t.Dashboard != nil {
		if err := t.Dashboard.Validate(); err != nil {
			return err
		}
	}

	seen := make(map[string]bool)
	for _, p := range t.Projects {
		if seen[p.Name] {
			return fmt.Errorf("build project %q: %w", p.Name, ErrDuplicateName)
		}
		seen[p.Name] = true
		if err := p.validate(); err != nil {
			return err
		}
	}
	for _, a := range t.Alarms {
		if err := a.validate(seen); err != nil {
			return err
		}
	}

	for _, s := range t.Pipeline.stages {
		for _, a := range s.Actions {
			switch a.Kind {
			case ActionBuild:
				if !seen[a.Project] {
					return &ConfigError{Field: "stage." + s.Name + "." + a.Name + ".project", Reason: fmt.Sprintf("unknown build project %q", a.Project)}
				}
			case ActionDeploy:
				if _, ok := t.Services[a.Target]; !ok {
					return &ConfigError{Field: "services." + a.Target, Reason: fmt.Sprintf("no service front for deploy action %q", a.Name)}
				}
			case ActionBlueGreenDeploy:
				if t.DeploymentGroup == nil || t.DeploymentGroup.Name != a.DeploymentGroup {
					return fmt.Errorf("stage %q action %q: %w", s.Name, a.Name, ErrMissingDeploymentGroup)
				}
			}
		}
	}
	return nil
}

func sourceStage(c Collaborators) Stage {
	return Stage{
		Name: StageSource,
		Actions: []Action{{
			Name:    ActionGitHubSource,
			Kind:    ActionSource,
			Outputs: []string{ArtifactSource},
			Source: &SourceConfig{
				Repository: c.Source,
				Token:      c.SourceToken.Resolve(),
			},
		}},
	}
}

func unitTestStage() Stage {
	return Stage{
		Name: StageUnitTest,
		Actions: []Action{{
			Name:    ActionUnitTest,
			Kind:    ActionBuild,
			Project: UnitTestProject,
			Inputs:  []string{ArtifactSource},
			Outputs: []string{ArtifactUnitTest},
		}},
	}
}

func dockerStage() Stage {
	return Stage{
		Name: StageDocker,
		Actions: []Action{{
			Name:    ActionDockerBuild,
			Kind:    ActionBuild,
			Project: DockerBuildProject,
			Inputs:  []string{ArtifactSource},
			Outputs: []string{ArtifactDocker},
		}},
	}
}

func deployTestStage() Stage {
	return Stage{
		Name: StageDeployTest,
		Actions: []Action{{
			Name:   ActionDeployTest,
			Kind:   ActionDeploy,
			Target: TargetTest,
			Inputs: []string{ArtifactDocker},
		}},
	}
}

func productionStage(group string, opts Options) Stage {
	return Stage{
		Name: StageProduction,
		Actions: []Action{
			{
				Name:     ActionApprove,
				Kind:     ActionApproval,
				RunOrder: 1,
				Approval: &ApprovalConfig{
					Information: "Approve the blue/green deployment of " + opts.PipelineName + " to production",
					Timeout:     opts.ApprovalTimeout,
					Notify:      true,
				},
			},
			{
				Name:            ActionBlueGreen,
				Kind:            ActionBlueGreenDeploy,
				RunOrder:        2,
				Target:          TargetProduction,
				DeploymentGroup: group,
				Inputs:          []string{ArtifactDocker},
			},
		},
	}
}

// View is the serializable form of a Topology.
type View struct {
	Version         Version                 `json:"version" yaml:"version"`
	Pipeline        string                  `json:"pipeline" yaml:"pipeline"`
	Stages          []Stage                 `json:"stages" yaml:"stages"`
	Plan            []StagePlan             `json:"plan" yaml:"plan"`
	Projects        []BuildProject          `json:"projects" yaml:"projects"`
	Services        map[string]ServiceFront `json:"services,omitempty" yaml:"services,omitempty"`
	DeploymentGroup *DeploymentGroup        `json:"deploymentGroup,omitempty" yaml:"deploymentGroup,omitempty"`
	Dashboard       *DashboardSpec          `json:"dashboard,omitempty" yaml:"dashboard,omitempty"`
	Notification    *NotificationRule       `json:"notification,omitempty" yaml:"notification,omitempty"`
	Alarms          []AlarmRule             `json:"alarms,omitempty" yaml:"alarms,omitempty"`
}

func (t Topology) View() View {
	return View{
		Version:         t.Version,
		Pipeline:        t.Pipeline.Name(),
		Stages:          t.Pipeline.Stages(),
		Plan:            t.Pipeline.ExecutionPlan(),
		Projects:        t.Projects,
		Services:        t.Services,
		DeploymentGroup: t.DeploymentGroup,
		Dashboard:       t.Dashboard,
		Notification:    t.Notification,
		Alarms:          t.Alarms,
	}
}

func (t Topology) MarshalJSON() ([]byte, error) { return json.Marshal(t.View()) }

func (t Topology) MarshalYAML() (interface{}, error) { return t.View(), nil }
