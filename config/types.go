// Package config loads and validates the incidentd.yml configuration.
package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ConfigFileName is the name of the configuration file searched for in the
// working directory and its parents.
const ConfigFileName = "incidentd.yml"

// Config is the root configuration structure.
type Config struct {
	// Version is the configuration format version.
	Version string `yaml:"version" jsonschema:"description=Configuration format version (e.g. '1')"`

	// Server configures the daemon's listen address and realtime endpoint.
	Server ServerConfig `yaml:"server,omitempty" jsonschema:"description=Daemon server settings"`

	// Extensions captures all other top-level keys (e.g. "logging") for
	// section-scoped decoding via UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" jsonschema:"-"`
}

// ServerConfig holds the daemon's network settings.
type ServerConfig struct {
	// Listen is the TCP address the daemon binds, e.g. ":3001".
	Listen string `yaml:"listen,omitempty" jsonschema:"description=TCP listen address"`

	// Tenant is the default tenant scope reported on REST list responses
	// when the caller does not pass one. Informational only.
	Tenant string `yaml:"tenant,omitempty" jsonschema:"description=Default tenant scope for REST listings"`
}

// SetDefaults fills in defaults for unset fields.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":3001"
	}
	if c.Server.Tenant == "" {
		c.Server.Tenant = "utec"
	}
}

// UnmarshalExtension decodes a specific extension section of incidentd.yml
// into the provided target struct. The target must be a pointer. A missing
// key is not an error; the target simply stays zero-valued.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	// Decode the generic map into the strongly-typed target, keyed by the
	// same yaml tags the rest of the config uses.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "yaml",
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
