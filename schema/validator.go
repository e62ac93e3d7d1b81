// Package schema validates incidentd configuration against the embedded
// JSON Schema.
package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed incidentd.embedded.schema.json
var embeddedSchemaData []byte

// Validator validates configuration against the embedded JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a new schema validator, loading the embedded schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("incidentd.json", strings.NewReader(string(embeddedSchemaData))); err != nil {
		return nil, fmt.Errorf("failed to add embedded schema resource: %w", err)
	}

	schema, err := compiler.Compile("incidentd.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate validates configuration data against the schema. configData may
// be any value that marshals to JSON; structs are round-tripped through
// JSON so the schema sees plain objects.
func (v *Validator) Validate(configData interface{}) error {
	jsonData, err := json.Marshal(configData)
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON for validation: %w", err)
	}

	var dataToValidate interface{}
	if err := json.Unmarshal(jsonData, &dataToValidate); err != nil {
		return fmt.Errorf("failed to unmarshal JSON for validation: %w", err)
	}

	if err := v.schema.Validate(dataToValidate); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("configuration is invalid: %s", formatValidationError(validationErr))
		}
		return err
	}

	return nil
}

// formatValidationError flattens a jsonschema validation error into a
// single readable line per leaf cause.
func formatValidationError(err *jsonschema.ValidationError) string {
	leaves := leafErrors(err)
	parts := make([]string, 0, len(leaves))
	for _, leaf := range leaves {
		loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
		if loc == "" {
			loc = "(root)"
		}
		parts = append(parts, fmt.Sprintf("%s: %s", loc, leaf.Message))
	}
	return strings.Join(parts, "; ")
}

func leafErrors(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		leaves = append(leaves, leafErrors(cause)...)
	}
	return leaves
}
