package runner

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var (
	ErrCommandEmpty    = errors.New("command name is empty")
	ErrOutputPathEmpty = errors.New("output path is empty")
)

// PipelineError reports every failure observed while running a command
// whose output streams are drained concurrently: drain failures, the
// process exit status and the destination file close.
type PipelineError struct {
	Command  string
	ExitCode int
	Errs     *multierror.Error
}

func (e *PipelineError) Error() string {
	if e.Errs == nil {
		return fmt.Sprintf("%s (exit code %d)", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s (exit code %d): %s", e.Command, e.ExitCode, e.Errs.Error())
}

func (e *PipelineError) Unwrap() error {
	return e.Errs.ErrorOrNil()
}
