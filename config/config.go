// Package config loads the pipeline stack configuration from struct
// defaults, an optional YAML file, a .env file and PIPELINE__ environment
// variables, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/30Piraten/ecs-pipeline/topology"
)

const (
	// EnvPrefix nests with a double underscore:
	// PIPELINE__SOURCE__OWNER -> source.owner
	EnvPrefix = "PIPELINE__"
	// EnvConfigFile names the YAML file when no path is passed.
	EnvConfigFile = "PIPELINE_CONFIG"
)

type StackConfig struct {
	Name    string `koanf:"name" validate:"required"`
	Account string `koanf:"account" validate:"omitempty,len=12,numeric"`
	Region  string `koanf:"region" validate:"required"`
}

type PipelineConfig struct {
	Name    string `koanf:"name" validate:"required"`
	Version int    `koanf:"version" validate:"min=1,max=3"`
	// Through cuts the pipeline after the named stage.
	Through string `koanf:"through"`
}

type SecretConfig struct {
	Name  string `koanf:"name"`
	Field string `koanf:"field"`
}

type SourceConfig struct {
	Owner  string       `koanf:"owner"`
	Repo   string       `koanf:"repo"`
	Branch string       `koanf:"branch"`
	Secret SecretConfig `koanf:"secret"`
}

type RegistryConfig struct {
	RepositoryName string `koanf:"repository_name"`
}

type ArtifactStoreConfig struct {
	BucketName string `koanf:"bucket_name"`
}

type ServiceConfig struct {
	ClusterName     string `koanf:"cluster_name"`
	ServiceName     string `koanf:"service_name"`
	TargetGroupARN  string `koanf:"target_group_arn"`
	ListenerARN     string `koanf:"listener_arn"`
	SecurityGroupID string `koanf:"security_group_id"`
}

type ServicesConfig struct {
	Test       ServiceConfig `koanf:"test"`
	Production ServiceConfig `koanf:"production"`
}

type GreenSlotConfig struct {
	TargetGroupARN string `koanf:"target_group_arn"`
	ListenerARN    string `koanf:"listener_arn"`
}

type DeploymentConfig struct {
	LinearPercentage int           `koanf:"linear_percentage" validate:"min=1,max=99"`
	LinearInterval   time.Duration `koanf:"linear_interval"`
	TerminationWait  time.Duration `koanf:"termination_wait"`
	ApprovalWait     time.Duration `koanf:"approval_wait"`
	// ApprovalTimeoutMinutes is passed through to the manual approval;
	// zero keeps the pipeline service default.
	ApprovalTimeoutMinutes int `koanf:"approval_timeout_minutes" validate:"min=0"`
}

type MonitoringConfig struct {
	NotificationEmail string  `koanf:"notification_email" validate:"omitempty,email"`
	BuildDurationMax  float64 `koanf:"build_duration_max" validate:"gt=0"`
	QueueDurationMax  float64 `koanf:"queue_duration_max" validate:"gt=0"`
}

type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
}

// Config is the whole stack configuration. Keys are snake_case so the
// lower-cased environment keys line up with the YAML ones.
type Config struct {
	Stack         StackConfig         `koanf:"stack"`
	Pipeline      PipelineConfig      `koanf:"pipeline"`
	Source        SourceConfig        `koanf:"source"`
	Registry      RegistryConfig      `koanf:"registry"`
	ArtifactStore ArtifactStoreConfig `koanf:"artifact_store"`
	Services      ServicesConfig      `koanf:"services"`
	GreenSlot     GreenSlotConfig     `koanf:"green_slot"`
	Deployment    DeploymentConfig    `koanf:"deployment"`
	Monitoring    MonitoringConfig    `koanf:"monitoring"`
	Logging       LoggingConfig       `koanf:"logging"`
}

func Defaults() Config {
	opts := topology.DefaultOptions()
	return Config{
		Stack: StackConfig{
			Name:   "PipelineCdkStack",
			Region: "us-east-1",
		},
		Pipeline: PipelineConfig{
			Name:    opts.PipelineName,
			Version: int(topology.Version3),
		},
		Deployment: DeploymentConfig{
			LinearPercentage: opts.TrafficShift.Percentage,
			LinearInterval:   opts.TrafficShift.Interval,
			TerminationWait:  opts.TerminationWait,
		},
		Monitoring: MonitoringConfig{
			BuildDurationMax: opts.BuildDurationMax,
			QueueDurationMax: opts.QueueDurationMax,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the configuration. When path is empty the PIPELINE_CONFIG
// variable is consulted; a missing default file is fine, a missing
// explicit one is not.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load with a final layer of dotted keys, used for
// command-line flags. Overrides win over the environment.
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	if err := loadDotEnv(""); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		if err := ValidateFile(path); err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

// newValidator reports fields by their config path rather than the Go
// field name.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks formats and ranges. Whether a collaborator is present
// at all depends on the version and is checked by topology.Assemble.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(field, reason string) {
		errs = append(errs, &topology.ConfigError{Field: field, Reason: reason})
	}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate config: %w", err)
		}
		for _, fe := range fieldErrs {
			invalid(fieldPath(fe), reason(fe))
		}
	}

	if d := c.Deployment.LinearInterval; d < time.Minute || d%time.Minute != 0 {
		invalid("deployment.linear_interval", fmt.Sprintf("%s is not a whole number of minutes", d))
	}
	if c.Deployment.TerminationWait < 0 || c.Deployment.ApprovalWait < 0 {
		invalid("deployment", "wait times must not be negative")
	}
	return errors.Join(errs...)
}

// fieldPath drops the root struct name: Config.stack.name -> stack.name.
func fieldPath(fe validator.FieldError) string {
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	return path
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return fmt.Sprintf("%q is not an email address", fe.Value())
	case "oneof":
		return fmt.Sprintf("%v is not one of %s", fe.Value(), fe.Param())
	case "min", "max", "gt":
		return fmt.Sprintf("%v fails %s=%s", fe.Value(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%v fails %s", fe.Value(), fe.ActualTag())
}

func (c *Config) Version() topology.Version { return topology.Version(c.Pipeline.Version) }

// Collaborators converts the configured handles. Sections left empty stay
// nil so topology can report them by name.
func (c *Config) Collaborators() topology.Collaborators {
	col := topology.Collaborators{
		Source: topology.Repository{
			Owner:  c.Source.Owner,
			Repo:   c.Source.Repo,
			Branch: c.Source.Branch,
		},
		SourceToken: topology.SecretRef{
			Store: c.Source.Secret.Name,
			Field: c.Source.Secret.Field,
		},
		Region:            c.Stack.Region,
		NotificationEmail: c.Monitoring.NotificationEmail,
	}
	if c.Registry.RepositoryName != "" {
		col.Registry = &topology.Registry{RepositoryName: c.Registry.RepositoryName}
	}
	if c.ArtifactStore.BucketName != "" {
		col.ArtifactStore = &topology.ObjectStore{BucketName: c.ArtifactStore.BucketName}
	}
	if s := c.Services.Test; s != (ServiceConfig{}) {
		col.TestService = s.front()
	}
	if s := c.Services.Production; s != (ServiceConfig{}) {
		col.ProductionService = s.front()
	}
	if g := c.GreenSlot; g != (GreenSlotConfig{}) {
		col.GreenSlot = &topology.GreenSlot{TargetGroupARN: g.TargetGroupARN, ListenerARN: g.ListenerARN}
	}
	return col
}

func (s ServiceConfig) front() *topology.ServiceFront {
	return &topology.ServiceFront{
		ClusterName:     s.ClusterName,
		ServiceName:     s.ServiceName,
		TargetGroupARN:  s.TargetGroupARN,
		ListenerARN:     s.ListenerARN,
		SecurityGroupID: s.SecurityGroupID,
	}
}

func (c *Config) Options() topology.Options {
	return topology.Options{
		PipelineName: c.Pipeline.Name,
		TrafficShift: topology.TrafficShift{
			Percentage: c.Deployment.LinearPercentage,
			Interval:   c.Deployment.LinearInterval,
		},
		TerminationWait:  c.Deployment.TerminationWait,
		ApprovalWait:     c.Deployment.ApprovalWait,
		ApprovalTimeout:  c.Deployment.ApprovalTimeoutMinutes,
		BuildDurationMax: c.Monitoring.BuildDurationMax,
		QueueDurationMax: c.Monitoring.QueueDurationMax,
		Through:          c.Pipeline.Through,
	}
}

// Assemble builds the topology for the configured version.
func (c *Config) Assemble() (topology.Topology, error) {
	return topology.Assemble(c.Version(), c.Collaborators(), c.Options())
}

// FlagOverrides collects the flags the user set explicitly, keyed by the
// config path each maps to.
func FlagOverrides(flags *pflag.FlagSet, mappings map[string]string) map[string]any {
	overrides := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := mappings[f.Name]; ok {
			overrides[key] = f.Value.String()
		}
	})
	return overrides
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

// NewLogger returns a text logger on stderr at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Logging.Level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
