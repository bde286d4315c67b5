package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/30Piraten/ecs-pipeline/topology"
)

//go:embed pipeline.schema.yaml
var schemaSource []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func fileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := yaml.Unmarshal(schemaSource, &doc); err != nil {
			schemaErr = fmt.Errorf("failed to parse config schema: %w", err)
			return
		}
		data, err := json.Marshal(doc)
		if err != nil {
			schemaErr = fmt.Errorf("failed to marshal config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = jsonschema.CompileString("pipeline.schema.json", string(data))
	})
	return compiledSchema, schemaErr
}

// ValidateFile checks the shape of a YAML config file: known keys only,
// typed values, ARNs and durations that look right. Semantic checks stay in
// Validate and topology.Assemble.
func ValidateFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	if doc == nil {
		return nil
	}

	// The validator wants JSON-decoded values.
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert config file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return fmt.Errorf("failed to convert config file: %w", err)
	}

	schema, err := fileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(value); err != nil {
		return &topology.ConfigError{Field: path, Reason: err.Error()}
	}
	return nil
}
