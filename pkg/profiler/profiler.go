package profiler

import (
	"context"

	"github.com/maxgio92/xperfasm/pkg/events"
)

// Profiler is attached to benchmark trials by the harness running them.
type Profiler interface {
	// CheckSupport reports whether the profiler can run on this host, and
	// why not otherwise.
	CheckSupport() ([]string, bool)

	// OnTrialStart is called before the target process is launched.
	OnTrialStart(ctx context.Context) error

	// OnTrialEnd is called after the target process with the given pid
	// exited, and returns the aggregated samples of that process.
	OnTrialEnd(ctx context.Context, pid int) (*events.Events, error)

	Label() string
	Description() string
}
