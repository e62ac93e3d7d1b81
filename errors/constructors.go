package errors

import (
	"fmt"
)

// Validation creates a validation error for a missing or malformed field
func Validation(reason string) *IncidentError {
	return New(ErrCodeValidation, reason)
}

// MissingField creates a validation error for a required field left empty
func MissingField(field string) *IncidentError {
	return New(ErrCodeValidation, fmt.Sprintf("%s is required", field)).
		WithDetail("field", field)
}

// IncidentNotFound creates a not found error for an unknown incident id
func IncidentNotFound(id int64) *IncidentError {
	return New(ErrCodeNotFound, fmt.Sprintf("incident %d not found", id)).
		WithDetail("id", id)
}

// InvalidState creates an error for a state outside the closed enumeration
func InvalidState(state string, valid []string) *IncidentError {
	return New(ErrCodeInvalidState,
		fmt.Sprintf("invalid state '%s', valid states: %v", state, valid)).
		WithDetail("state", state)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *IncidentError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *IncidentError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// DaemonNotRunning creates an error for operations that need a live daemon
func DaemonNotRunning() *IncidentError {
	return New(ErrCodeDaemonNotRunning, "daemon is not running")
}

// DaemonAlreadyRunning creates an error for a second daemon start
func DaemonAlreadyRunning(pid int) *IncidentError {
	return New(ErrCodeDaemonRunning, fmt.Sprintf("daemon already running with PID %d", pid)).
		WithDetail("pid", pid)
}
