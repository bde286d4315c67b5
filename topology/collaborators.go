package topology

import (
	"errors"
	"fmt"
)

// Repository is the source-control location the pipeline checks out.
type Repository struct {
	Owner  string `json:"owner" yaml:"owner"`
	Repo   string `json:"repo" yaml:"repo"`
	Branch string `json:"branch" yaml:"branch"`
}

// SecretRef points at one field of a secret store entry.
type SecretRef struct {
	Store string `json:"store" yaml:"store"`
	Field string `json:"field" yaml:"field"`
}

func (r SecretRef) IsZero() bool { return r.Store == "" || r.Field == "" }

// Resolve binds the reference to an accessor. Nothing is read here; the
// secret store dereferences it when the source action runs.
func (r SecretRef) Resolve() SecretAccessor { return SecretAccessor{ref: r} }

// SecretAccessor is an opaque handle to a secret field. It only ever
// prints its reference.
type SecretAccessor struct {
	ref SecretRef
}

func (a SecretAccessor) Ref() SecretRef { return a.ref }

func (a SecretAccessor) String() string {
	return fmt.Sprintf("secret:%s#%s", a.ref.Store, a.ref.Field)
}

func (a SecretAccessor) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Registry is an existing container image repository.
type Registry struct {
	RepositoryName string `json:"repositoryName" yaml:"repositoryName"`
}

// ObjectStore is an existing bucket handed to the image build.
type ObjectStore struct {
	BucketName string `json:"bucketName" yaml:"bucketName"`
}

// ServiceFront describes a compute service behind a load balancer.
// TargetGroupARN, ListenerARN and the listener's SecurityGroupID are only
// needed for the production front, where they form the blue slot.
type ServiceFront struct {
	ClusterName     string `json:"clusterName" yaml:"clusterName"`
	ServiceName     string `json:"serviceName" yaml:"serviceName"`
	TargetGroupARN  string `json:"targetGroupArn,omitempty" yaml:"targetGroupArn,omitempty"`
	ListenerARN     string `json:"listenerArn,omitempty" yaml:"listenerArn,omitempty"`
	SecurityGroupID string `json:"securityGroupId,omitempty" yaml:"securityGroupId,omitempty"`
}

// GreenSlot is the target group and test listener that receive a new
// task set before cutover.
type GreenSlot struct {
	TargetGroupARN string `json:"targetGroupArn" yaml:"targetGroupArn"`
	ListenerARN    string `json:"listenerArn" yaml:"listenerArn"`
}

// Collaborators is the construction-time input. Each version requires a
// different subset; nothing is defaulted.
type Collaborators struct {
	Source            Repository
	SourceToken       SecretRef
	Registry          *Registry
	ArtifactStore     *ObjectStore
	TestService       *ServiceFront
	ProductionService *ServiceFront
	GreenSlot         *GreenSlot
	Region            string
	NotificationEmail string
}

// Require returns a ConfigError for the first field version v needs that
// is absent.
func (c Collaborators) Require(v Version) error {
	errs := c.check(v, len(v.Stages()))
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// RequireAll reports every missing field at once.
func (c Collaborators) RequireAll(v Version) error {
	return c.RequireAllThrough(v, "")
}

// RequireAllThrough is RequireAll for a pipeline cut after the stage named
// through.
func (c Collaborators) RequireAllThrough(v Version, through string) error {
	n, err := Options{Through: through}.stageCount(v)
	if err != nil {
		return err
	}
	errs := c.check(v, n)
	joined := make([]error, 0, len(errs))
	for _, err := range errs {
		joined = append(joined, err)
	}
	return errors.Join(joined...)
}

// check reports what the first stages of version v need. Monitoring is
// part of version 3 however many stages it declares.
func (c Collaborators) check(v Version, stages int) []*ConfigError {
	var errs []*ConfigError
	if c.Source.Owner == "" || c.Source.Repo == "" || c.Source.Branch == "" {
		errs = append(errs, missing("source.repository"))
	}
	if c.SourceToken.IsZero() {
		errs = append(errs, missing("source.secret"))
	}
	if stages >= 3 {
		errs = append(errs, c.checkBuild()...)
	}
	if stages >= 4 && (c.TestService == nil || c.TestService.ClusterName == "" || c.TestService.ServiceName == "") {
		errs = append(errs, missing("services.test"))
	}
	if stages >= 5 {
		errs = append(errs, c.checkProduction()...)
	}
	if v >= Version3 && c.NotificationEmail == "" {
		errs = append(errs, missing("monitoring.notification_email"))
	}
	return errs
}

func (c Collaborators) checkBuild() []*ConfigError {
	var errs []*ConfigError
	if c.Registry == nil || c.Registry.RepositoryName == "" {
		errs = append(errs, missing("registry"))
	}
	if c.ArtifactStore == nil || c.ArtifactStore.BucketName == "" {
		errs = append(errs, missing("artifact_store"))
	}
	if c.Region == "" {
		errs = append(errs, missing("region"))
	}
	return errs
}

func (c Collaborators) checkProduction() []*ConfigError {
	var errs []*ConfigError
	p := c.ProductionService
	switch {
	case p == nil || p.ClusterName == "" || p.ServiceName == "":
		errs = append(errs, missing("services.production"))
	case p.TargetGroupARN == "":
		errs = append(errs, missing("services.production.target_group_arn"))
	case p.ListenerARN == "":
		errs = append(errs, missing("services.production.listener_arn"))
	case p.SecurityGroupID == "":
		errs = append(errs, missing("services.production.security_group_id"))
	}
	if c.GreenSlot == nil || c.GreenSlot.TargetGroupARN == "" || c.GreenSlot.ListenerARN == "" {
		errs = append(errs, missing("green_slot"))
	}
	return errs
}
