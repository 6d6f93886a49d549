//go:build !windows

package common

import (
	"os"
	"syscall"
)

func IsProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Check if process exists
	return process.Signal(syscall.Signal(0)) == nil
}

// DetachedProcAttr starts a child in its own session, so that it survives
// the terminal of its parent.
func DetachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
