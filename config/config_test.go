package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opswatch/incidentd/errors"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "version: \"1\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":3001", cfg.Server.Listen)
	assert.Equal(t, "utec", cfg.Server.Tenant)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `version: "1"
server:
  listen: ":8080"
  tenant: acme
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, "acme", cfg.Server.Tenant)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "version: \"1\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ConfigFileName), found)
}

func TestUnmarshalExtension(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `version: "1"
logging:
  level: debug
  report_caller: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	var logCfg struct {
		Level        string `yaml:"level"`
		ReportCaller bool   `yaml:"report_caller"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.True(t, logCfg.ReportCaller)

	// Missing sections leave the target zero-valued
	var missing struct {
		Anything string `yaml:"anything"`
	}
	require.NoError(t, cfg.UnmarshalExtension("nope", &missing))
	assert.Empty(t, missing.Anything)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "bad version", mutate: func(c *Config) { c.Version = "2" }, wantErr: true},
		{name: "empty listen", mutate: func(c *Config) { c.Server.Listen = " " }, wantErr: true},
		{name: "listen without port", mutate: func(c *Config) { c.Server.Listen = "localhost" }, wantErr: true},
		{name: "host with port", mutate: func(c *Config) { c.Server.Listen = "127.0.0.1:9000" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.SetDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(data), "incidentd Configuration")
	assert.Contains(t, string(data), "version")
}
