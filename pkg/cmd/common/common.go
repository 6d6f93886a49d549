package common

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/maxgio92/xperfasm/internal/settings"
)

var ErrInvalidPidFile = errors.New("invalid PID file")

// ReadPidFile returns the PID stored at path.
func ReadPidFile(path string) (int, error) {
	pidData, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(pidData)))
	if err != nil || pid <= 0 {
		return 0, errors.Wrapf(ErrInvalidPidFile, "%s", path)
	}

	return pid, nil
}

func WritePidFile(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644)
}

// IsDaemonRunning reports whether the recording daemon referenced by the
// PID file is alive.
func IsDaemonRunning() bool {
	pid, err := ReadPidFile(settings.PidFile)
	if err != nil {
		return false
	}

	return IsProcessAlive(pid)
}
