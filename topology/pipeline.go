package topology

import (
	"fmt"
	"sort"
)

type ActionKind string

const (
	ActionSource          ActionKind = "source"
	ActionBuild           ActionKind = "build"
	ActionDeploy          ActionKind = "deploy"
	ActionBlueGreenDeploy ActionKind = "blue-green-deploy"
	ActionApproval        ActionKind = "approval"
)

// MaxRunOrder is the largest run order the pipeline service accepts.
const MaxRunOrder = 999

// Action is one unit of work in a stage. RunOrder zero means unset, which
// runs with the first group of the stage.
type Action struct {
	Name     string     `json:"name" yaml:"name"`
	Kind     ActionKind `json:"kind" yaml:"kind"`
	Inputs   []string   `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs  []string   `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	RunOrder int        `json:"runOrder,omitempty" yaml:"runOrder,omitempty"`

	// Project names a BuildProject for build actions.
	Project string `json:"project,omitempty" yaml:"project,omitempty"`
	// Target names the service front for deploy actions ("test", "production").
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
	// DeploymentGroup names the group a blue/green deploy goes through.
	DeploymentGroup string `json:"deploymentGroup,omitempty" yaml:"deploymentGroup,omitempty"`

	Source   *SourceConfig   `json:"source,omitempty" yaml:"source,omitempty"`
	Approval *ApprovalConfig `json:"approval,omitempty" yaml:"approval,omitempty"`
}

func (a Action) effectiveRunOrder() int {
	if a.RunOrder == 0 {
		return 1
	}
	return a.RunOrder
}

// SourceConfig binds the source action to a repository and token.
type SourceConfig struct {
	Repository Repository     `json:"repository" yaml:"repository"`
	Token      SecretAccessor `json:"token" yaml:"token"`
}

// ApprovalConfig configures a manual gate. A zero Timeout leaves the
// engine's own default in place.
type ApprovalConfig struct {
	Information string `json:"information,omitempty" yaml:"information,omitempty"`
	Timeout     int    `json:"timeoutMinutes,omitempty" yaml:"timeoutMinutes,omitempty"`
	Notify      bool   `json:"notify,omitempty" yaml:"notify,omitempty"`
}

// Stage is a named phase. Stages run in slice order.
type Stage struct {
	Name    string   `json:"name" yaml:"name"`
	Actions []Action `json:"actions" yaml:"actions"`
}

// PipelineSpec is an immutable stage/action graph. AddStage never mutates
// the receiver.
type PipelineSpec struct {
	name   string
	stages []Stage
}

func NewPipelineSpec(name string) PipelineSpec {
	return PipelineSpec{name: name}
}

func (p PipelineSpec) Name() string { return p.name }

// Stages returns a deep copy of the stage list.
func (p PipelineSpec) Stages() []Stage {
	out := make([]Stage, len(p.stages))
	for i, s := range p.stages {
		out[i] = cloneStage(s)
	}
	return out
}

// StageNames returns stage names in execution order.
func (p PipelineSpec) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Stage looks a stage up by name.
func (p PipelineSpec) Stage(name string) (Stage, bool) {
	for _, s := range p.stages {
		if s.Name == name {
			return cloneStage(s), true
		}
	}
	return Stage{}, false
}

// AddStage validates s against the stages already declared and returns a
// new spec with s appended.
func (p PipelineSpec) AddStage(s Stage) (PipelineSpec, error) {
	if err := p.validateStage(s); err != nil {
		return p, err
	}
	stages := make([]Stage, len(p.stages), len(p.stages)+1)
	copy(stages, p.stages)
	stages = append(stages, cloneStage(s))
	return PipelineSpec{name: p.name, stages: stages}, nil
}

// Artifacts maps every produced artifact to the action producing it.
func (p PipelineSpec) Artifacts() map[string]string {
	out := make(map[string]string)
	for _, s := range p.stages {
		for _, a := range s.Actions {
			for _, o := range a.Outputs {
				out[o] = a.Name
			}
		}
	}
	return out
}

// Consumers maps every artifact to the actions reading it, in declaration order.
func (p PipelineSpec) Consumers() map[string][]string {
	out := make(map[string][]string)
	for _, s := range p.stages {
		for _, a := range s.Actions {
			for _, in := range a.Inputs {
				out[in] = append(out[in], a.Name)
			}
		}
	}
	return out
}

func (p PipelineSpec) validateStage(s Stage) error {
	if s.Name == "" {
		return &ConfigError{Field: "stage.name", Reason: "required"}
	}
	if len(s.Actions) == 0 {
		return &ConfigError{Field: "stage." + s.Name + ".actions", Reason: "a stage needs at least one action"}
	}

	actionNames := make(map[string]bool)
	produced := make(map[string]bool)
	for _, st := range p.stages {
		if st.Name == s.Name {
			return fmt.Errorf("stage %q: %w", s.Name, ErrDuplicateName)
		}
		for _, a := range st.Actions {
			actionNames[a.Name] = true
			for _, o := range a.Outputs {
				produced[o] = true
			}
		}
	}

	first := len(p.stages) == 0
	sources := 0
	for _, a := range s.Actions {
		if a.Name == "" {
			return &ConfigError{Field: "stage." + s.Name + ".action.name", Reason: "required"}
		}
		if actionNames[a.Name] {
			return fmt.Errorf("action %q: %w", a.Name, ErrDuplicateName)
		}
		actionNames[a.Name] = true

		if a.RunOrder < 0 || a.RunOrder > MaxRunOrder {
			return &RunOrderError{Stage: s.Name, Action: a.Name, Reason: fmt.Sprintf("%d is outside 1..%d", a.RunOrder, MaxRunOrder)}
		}

		switch a.Kind {
		case ActionSource:
			sources++
			if !first {
				return fmt.Errorf("stage %q action %q: source action outside the first stage: %w", s.Name, a.Name, ErrNoSource)
			}
			if len(a.Outputs) != 1 {
				return fmt.Errorf("stage %q action %q: source must produce exactly one artifact: %w", s.Name, a.Name, ErrNoSource)
			}
		case ActionBuild:
			if a.Project == "" {
				return &ConfigError{Field: "stage." + s.Name + "." + a.Name + ".project", Reason: "required"}
			}
		case ActionDeploy:
			if a.Target == "" {
				return &ConfigError{Field: "stage." + s.Name + "." + a.Name + ".target", Reason: "required"}
			}
		case ActionBlueGreenDeploy:
			if a.DeploymentGroup == "" {
				return fmt.Errorf("stage %q action %q: %w", s.Name, a.Name, ErrMissingDeploymentGroup)
			}
		case ActionApproval:
		default:
			return &ConfigError{Field: "stage." + s.Name + "." + a.Name + ".kind", Reason: fmt.Sprintf("unknown action kind %q", a.Kind)}
		}
	}
	if first && sources != 1 {
		return fmt.Errorf("stage %q: %w", s.Name, ErrNoSource)
	}

	// Outputs of this stage, keyed by artifact, with the producer's run order.
	local := make(map[string]int)
	for _, a := range s.Actions {
		for _, o := range a.Outputs {
			if produced[o] {
				return fmt.Errorf("artifact %q: %w", o, ErrDuplicateName)
			}
			if _, dup := local[o]; dup {
				return fmt.Errorf("artifact %q: %w", o, ErrDuplicateName)
			}
			local[o] = a.effectiveRunOrder()
		}
	}

	for _, a := range s.Actions {
		for _, in := range a.Inputs {
			if produced[in] {
				continue
			}
			order, ok := local[in]
			if !ok {
				return &ArtifactError{Stage: s.Name, Action: a.Name, Artifact: in}
			}
			if order >= a.effectiveRunOrder() {
				return &RunOrderError{
					Stage:  s.Name,
					Action: a.Name,
					Reason: fmt.Sprintf("input %q is produced at run order %d, not before %d", in, order, a.effectiveRunOrder()),
				}
			}
		}
	}
	return nil
}

// ExecutionGroup is a set of actions the engine starts together.
type ExecutionGroup struct {
	RunOrder int      `json:"runOrder" yaml:"runOrder"`
	Actions  []string `json:"actions" yaml:"actions"`
}

// StagePlan is the declared ordering of one stage.
type StagePlan struct {
	Stage  string           `json:"stage" yaml:"stage"`
	Groups []ExecutionGroup `json:"groups" yaml:"groups"`
}

// ExecutionPlan groups each stage's actions by run order. Actions in one
// group run in parallel; groups run in ascending order.
func (p PipelineSpec) ExecutionPlan() []StagePlan {
	plan := make([]StagePlan, 0, len(p.stages))
	for _, s := range p.stages {
		byOrder := make(map[int][]string)
		for _, a := range s.Actions {
			o := a.effectiveRunOrder()
			byOrder[o] = append(byOrder[o], a.Name)
		}
		orders := make([]int, 0, len(byOrder))
		for o := range byOrder {
			orders = append(orders, o)
		}
		sort.Ints(orders)

		sp := StagePlan{Stage: s.Name}
		for _, o := range orders {
			sp.Groups = append(sp.Groups, ExecutionGroup{RunOrder: o, Actions: byOrder[o]})
		}
		plan = append(plan, sp)
	}
	return plan
}

func cloneStage(s Stage) Stage {
	out := Stage{Name: s.Name, Actions: make([]Action, len(s.Actions))}
	for i, a := range s.Actions {
		a.Inputs = append([]string(nil), a.Inputs...)
		a.Outputs = append([]string(nil), a.Outputs...)
		if a.Source != nil {
			src := *a.Source
			a.Source = &src
		}
		if a.Approval != nil {
			ap := *a.Approval
			a.Approval = &ap
		}
		out.Actions[i] = a
	}
	return out
}
