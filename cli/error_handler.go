package cli

import (
	"fmt"
	"os"

	"github.com/opswatch/incidentd/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
	}
}

// Handle provides user-friendly error messages based on error type
func (h *ErrorHandler) Handle(err error) error {
	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(os.Stderr, "❌ Configuration not found. Create an incidentd.yml or pass --config.\n")
		return err

	case errors.ErrCodeDaemonNotRunning:
		fmt.Fprintf(os.Stderr, "❌ The daemon is not running.\n")
		fmt.Fprintf(os.Stderr, "Start it with 'incidentd daemon start'.\n")
		return err

	case errors.ErrCodeDaemonRunning:
		if incErr, ok := err.(*errors.IncidentError); ok {
			fmt.Fprintf(os.Stderr, "❌ A daemon is already running (PID %v).\n", incErr.Details["pid"])
			fmt.Fprintf(os.Stderr, "Stop it first with 'incidentd daemon stop'.\n")
		}
		return err

	case errors.ErrCodeNotFound:
		if incErr, ok := err.(*errors.IncidentError); ok {
			fmt.Fprintf(os.Stderr, "❌ %s\n", incErr.Message)
			fmt.Fprintf(os.Stderr, "Run 'incidentd incidents list' to see current incidents.\n")
		}
		return err

	default:
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)

		if h.Verbose {
			if incErr, ok := err.(*errors.IncidentError); ok {
				fmt.Fprintf(os.Stderr, "\nError details:\n%s\n", incErr.ToJSON())
			}
		}
		return err
	}
}
