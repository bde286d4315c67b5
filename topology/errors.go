package topology

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCollaborator    = errors.New("missing required collaborator")
	ErrUnknownArtifact        = errors.New("artifact was never produced by an earlier action")
	ErrRunOrder               = errors.New("invalid run order")
	ErrDuplicateName          = errors.New("duplicate name")
	ErrNoSource               = errors.New("pipeline needs exactly one source action")
	ErrMissingDeploymentGroup = errors.New("blue/green deploy action has no deployment group")
	ErrWildcardAction         = errors.New("wildcard action grant")
)

// ConfigError is a construction-time configuration error. Field names the
// configuration key that is missing or invalid.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s", e.Field)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func missing(field string) *ConfigError {
	return &ConfigError{Field: field, Reason: "required", Err: ErrMissingCollaborator}
}

// ArtifactError reports an action input that no earlier action produces.
type ArtifactError struct {
	Stage    string
	Action   string
	Artifact string
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("stage %q action %q: input artifact %q: %v", e.Stage, e.Action, e.Artifact, ErrUnknownArtifact)
}

func (e *ArtifactError) Unwrap() error { return ErrUnknownArtifact }

// RunOrderError reports a run order outside 1..999 or an intra-stage
// dependency that would have to run backwards.
type RunOrderError struct {
	Stage  string
	Action string
	Reason string
}

func (e *RunOrderError) Error() string {
	return fmt.Sprintf("stage %q action %q: %v: %s", e.Stage, e.Action, ErrRunOrder, e.Reason)
}

func (e *RunOrderError) Unwrap() error { return ErrRunOrder }
