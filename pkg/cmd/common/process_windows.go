//go:build windows

package common

import (
	"os"
	"syscall"
)

// On Windows FindProcess opens a handle to the process, and fails if it
// does not exist.
func IsProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	process.Release()

	return true
}

// DetachedProcAttr starts a child in its own process group, so that it does
// not receive the Ctrl+C of its parent console.
func DetachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
