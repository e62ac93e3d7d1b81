// Package paths provides XDG-compliant path resolution for incidentd.
//
// Resolution order:
// 1. INCIDENTD_HOME (portable root) → $INCIDENTD_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/incidentd
// 3. Platform defaults → ~/.config/incidentd, ~/.local/state/incidentd, etc.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if home := os.Getenv("INCIDENTD_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if home := os.Getenv("INCIDENTD_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the incidentd configuration directory.
func ConfigDir() string {
	if base := getConfigHome(); base != "" {
		return filepath.Join(base, "incidentd")
	}
	return ""
}

// StateDir returns the incidentd state directory, used for the PID file
// and logs.
func StateDir() string {
	if base := getStateHome(); base != "" {
		return filepath.Join(base, "incidentd")
	}
	return ""
}

// LogDir returns the directory holding daemon log files.
func LogDir() string {
	if state := StateDir(); state != "" {
		return filepath.Join(state, "logs")
	}
	return ""
}

// LogFilePath returns the log file path for a component.
func LogFilePath(component string) string {
	if dir := LogDir(); dir != "" {
		return filepath.Join(dir, fmt.Sprintf("%s.log", component))
	}
	return ""
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	if state := StateDir(); state != "" {
		return filepath.Join(state, "incidentd.pid")
	}
	return ""
}

// EnsureDirs creates all incidentd directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), LogDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
