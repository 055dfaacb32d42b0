//go:build !windows

package proclock

import (
	"errors"
	"os"
	"syscall"
)

// pidAlive probes a process with signal 0. EPERM still means the process
// exists, it just belongs to another user.
func pidAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
