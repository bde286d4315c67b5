package topology

import (
	"fmt"
	"time"
)

// TrafficShift is a linear policy: Percentage of traffic moves to the
// green slot every Interval until all of it has.
type TrafficShift struct {
	Percentage int           `json:"percentage" yaml:"percentage"`
	Interval   time.Duration `json:"interval" yaml:"interval"`
}

// ConfigName is the deployment config name the policy is registered
// under, e.g. "Linear10PercentEvery1Minutes".
func (t TrafficShift) ConfigName() string {
	return fmt.Sprintf("Linear%dPercentEvery%dMinutes", t.Percentage, int(t.Interval/time.Minute))
}

func (t TrafficShift) validate() error {
	if t.Percentage < 1 || t.Percentage > 99 {
		return &ConfigError{Field: "deployment.linear_percentage", Reason: fmt.Sprintf("%d is outside 1..99", t.Percentage)}
	}
	if t.Interval < time.Minute || t.Interval%time.Minute != 0 {
		return &ConfigError{Field: "deployment.linear_interval", Reason: fmt.Sprintf("%s is not a whole number of minutes", t.Interval)}
	}
	return nil
}

// AutoRollback lists the conditions that roll a deployment back.
type AutoRollback struct {
	FailedDeployment  bool `json:"failedDeployment" yaml:"failedDeployment"`
	StoppedDeployment bool `json:"stoppedDeployment" yaml:"stoppedDeployment"`
}

// DeploymentGroup is the blue/green configuration for the production
// service. Blue is the live slot, green receives the new task set.
type DeploymentGroup struct {
	Application      string        `json:"application" yaml:"application"`
	Name             string        `json:"name" yaml:"name"`
	Service          ServiceFront  `json:"service" yaml:"service"`
	BlueTargetGroup  string        `json:"blueTargetGroup" yaml:"blueTargetGroup"`
	GreenTargetGroup string        `json:"greenTargetGroup" yaml:"greenTargetGroup"`
	Listener         string        `json:"listener" yaml:"listener"`
	TestListener     string        `json:"testListener" yaml:"testListener"`
	TrafficShift     TrafficShift  `json:"trafficShift" yaml:"trafficShift"`
	TerminationWait  time.Duration `json:"terminationWait,omitempty" yaml:"terminationWait,omitempty"`
	ApprovalWait     time.Duration `json:"approvalWait,omitempty" yaml:"approvalWait,omitempty"`
	AutoRollback     AutoRollback  `json:"autoRollback" yaml:"autoRollback"`
}

func newDeploymentGroup(c Collaborators, opts Options) (*DeploymentGroup, error) {
	if err := opts.TrafficShift.validate(); err != nil {
		return nil, err
	}
	prod := *c.ProductionService
	return &DeploymentGroup{
		Application:      opts.PipelineName + "-app",
		Name:             opts.PipelineName + "-production",
		Service:          prod,
		BlueTargetGroup:  prod.TargetGroupARN,
		GreenTargetGroup: c.GreenSlot.TargetGroupARN,
		Listener:         prod.ListenerARN,
		TestListener:     c.GreenSlot.ListenerARN,
		TrafficShift:     opts.TrafficShift,
		TerminationWait:  opts.TerminationWait,
		ApprovalWait:     opts.ApprovalWait,
		AutoRollback:     AutoRollback{FailedDeployment: true, StoppedDeployment: true},
	}, nil
}
