package profiler

import (
	"github.com/pkg/errors"
)

var (
	ErrUnsupported       = errors.New("xperf is not available")
	ErrPIDNotInitialized = errors.New("xperfasm needs the target PID, but it is not initialized")
	ErrTrialNotStarted   = errors.New("trial not started")
)
