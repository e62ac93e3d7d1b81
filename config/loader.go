package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/opswatch/incidentd/errors"
)

// Load reads and parses the configuration file at path, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read configuration")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse configuration")
	}

	cfg.SetDefaults()
	return &cfg, nil
}

// LoadDefault searches for incidentd.yml starting from the working
// directory and walking up. When no file is found it returns a default
// configuration, so the daemon runs without any config file at all.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfig(), nil
	}

	path, err := FindConfigFile(cwd)
	if err != nil {
		return defaultConfig(), nil
	}
	return Load(path)
}

// FindConfigFile walks up from startDir looking for incidentd.yml.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.ConfigNotFound(ConfigFileName)
		}
		dir = parent
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}
