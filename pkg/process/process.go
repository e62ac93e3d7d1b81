// Package process provides liveness checks for the daemon PID file.
package process

import (
	"os"
	"syscall"
)

// IsProcessAlive reports whether a process with the given PID is running.
// It sends signal 0, which checks existence without delivering anything:
// nil means alive, EPERM means alive but owned by another user, ESRCH
// means gone.
func IsProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		// Does not happen on Unix; FindProcess always succeeds.
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	return err == nil || os.IsPermission(err)
}
