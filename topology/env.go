package topology

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RefKind names what a resolved reference points at.
type RefKind string

const (
	RefRegistryURI RefKind = "registry-uri"
	RefBucketName  RefKind = "bucket-name"
)

// Reference is a value that only exists once the referenced resource is
// deployed. Target is the collaborator's name.
type Reference struct {
	Kind   RefKind `json:"kind" yaml:"kind"`
	Target string  `json:"target" yaml:"target"`
}

// EnvValue is either a literal string or a Reference. The zero value is
// an empty literal.
type EnvValue struct {
	ref     *Reference
	literal string
}

func Literal(s string) EnvValue { return EnvValue{literal: s} }

func Resolved(ref Reference) EnvValue { return EnvValue{ref: &ref} }

func (v EnvValue) IsRef() bool { return v.ref != nil }

// Literal returns the literal value; ok is false for references.
func (v EnvValue) Literal() (string, bool) {
	if v.ref != nil {
		return "", false
	}
	return v.literal, true
}

// Ref returns the reference; ok is false for literals.
func (v EnvValue) Ref() (Reference, bool) {
	if v.ref == nil {
		return Reference{}, false
	}
	return *v.ref, true
}

func (v EnvValue) String() string {
	if v.ref != nil {
		return fmt.Sprintf("${%s:%s}", v.ref.Kind, v.ref.Target)
	}
	return v.literal
}

type envValueWire struct {
	Literal *string    `json:"literal,omitempty" yaml:"literal,omitempty"`
	Ref     *Reference `json:"ref,omitempty" yaml:"ref,omitempty"`
}

func (v EnvValue) wire() envValueWire {
	if v.ref != nil {
		ref := *v.ref
		return envValueWire{Ref: &ref}
	}
	lit := v.literal
	return envValueWire{Literal: &lit}
}

func (v *EnvValue) fromWire(w envValueWire) error {
	switch {
	case w.Ref != nil && w.Literal != nil:
		return errors.New("env value has both literal and ref")
	case w.Ref != nil:
		if w.Ref.Kind != RefRegistryURI && w.Ref.Kind != RefBucketName {
			return fmt.Errorf("env value: unknown reference kind %q", w.Ref.Kind)
		}
		*v = Resolved(*w.Ref)
	case w.Literal != nil:
		*v = Literal(*w.Literal)
	default:
		return errors.New("env value has neither literal nor ref")
	}
	return nil
}

func (v EnvValue) MarshalJSON() ([]byte, error) { return json.Marshal(v.wire()) }

func (v *EnvValue) UnmarshalJSON(data []byte) error {
	var w envValueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return v.fromWire(w)
}

func (v EnvValue) MarshalYAML() (interface{}, error) { return v.wire(), nil }

func (v *EnvValue) UnmarshalYAML(node *yaml.Node) error {
	var w envValueWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return v.fromWire(w)
}
