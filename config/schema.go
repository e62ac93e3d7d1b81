package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateSchema generates the JSON Schema for the incidentd configuration.
// It reflects the Config struct but excludes the Extensions field, which is
// an open map of section configs validated by their owning packages.
func GenerateSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		// Extension sections like "logging" land in the inline map, so
		// unknown top-level keys must stay legal.
		AllowAdditionalProperties: true,
		ExpandedStruct:            true,
		FieldNameTag:              "yaml",
	}

	type BaseConfig struct {
		Version string       `yaml:"version" jsonschema:"required,description=Configuration format version (e.g. '1')"`
		Server  ServerConfig `yaml:"server,omitempty" jsonschema:"description=Daemon server settings"`
	}

	schema := r.Reflect(&BaseConfig{})
	schema.Title = "incidentd Configuration"
	schema.Description = "Schema for incidentd.yml."
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return json.MarshalIndent(schema, "", "  ")
}
