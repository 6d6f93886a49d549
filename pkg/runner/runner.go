package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/armon/circbuf"
	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maxgio92/xperfasm/internal/utils"
)

const (
	// maxOutputSize bounds the output captured from control commands.
	maxOutputSize = 1 << 20
	drainBufSize  = 32 * 1024
)

// Command is an external command invocation.
type Command struct {
	Name string
	Args []string

	// Env entries are appended to the current process environment.
	Env []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Result is the outcome of a command that ran to completion.
type Result struct {
	Lines    []string
	ExitCode int
}

func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns the captured lines joined by newlines.
func (r *Result) Output() string {
	return strings.Join(r.Lines, "\n")
}

type Runner struct {
	logger log.Logger
}

type Option func(*Runner)

func WithLogger(logger log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func New(opts ...Option) *Runner {
	r := &Runner{
		logger: log.Nop(),
	}
	for _, f := range opts {
		f(r)
	}

	return r
}

// Run runs the named command to completion and returns the lines it wrote
// to both standard output and standard error, with its exit code.
// A non-zero exit code is not an error: the caller decides whether the
// command failed. An error is returned when the command could not be
// launched or ctx was canceled.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if name == "" {
		return nil, ErrCommandEmpty
	}

	buf, err := circbuf.NewBuffer(maxOutputSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate output buffer")
	}

	cmd := exec.CommandContext(ctx, name, args...)
	// The same writer for both streams makes exec use a single pipe.
	cmd.Stdout = buf
	cmd.Stderr = buf

	r.logger.Debug().Str("cmd", name).Strs("args", args).Msg("running command")
	err = cmd.Run()

	res := &Result{Lines: utils.SplitLines(buf.Bytes())}
	if buf.TotalWritten() > buf.Size() {
		r.logger.Debug().
			Str("cmd", name).
			Str("written", humanize.IBytes(uint64(buf.TotalWritten()))).
			Msg("command output truncated")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, errors.Wrapf(ctxErr, "command %s interrupted", name)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug().Str("cmd", name).Int("exit_code", res.ExitCode).Msg("command failed")
			return res, nil
		}
		return res, errors.Wrapf(err, "failed to run %s", name)
	}

	return res, nil
}

// RunStreaming runs cmd writing both its standard output and standard error
// into the file at outputPath. The two streams are drained concurrently, so
// that the command can never block on a full pipe while the other one is
// being read. It returns once both streams reached EOF and the command
// exited. Any drain, exit or file failure is reported as a *PipelineError.
func (r *Runner) RunStreaming(ctx context.Context, cmd Command, outputPath string) error {
	if cmd.Name == "" {
		return ErrCommandEmpty
	}
	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return errors.Wrapf(err, "failed to create output file %s", outputPath)
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	stdout, err := c.StdoutPipe()
	if err != nil {
		f.Close()
		return errors.Wrap(err, "failed to get stdout pipe")
	}
	stderr, err := c.StderrPipe()
	if err != nil {
		f.Close()
		return errors.Wrap(err, "failed to get stderr pipe")
	}

	r.logger.Debug().Str("cmd", cmd.String()).Strs("env", cmd.Env).Str("output", outputPath).Msg("running command")
	if err := c.Start(); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to start %s", cmd.Name)
	}

	w := &lockedWriter{w: f}
	var g errgroup.Group
	g.Go(func() error {
		return errors.Wrap(drain(w, stdout), "failed to drain stdout")
	})
	g.Go(func() error {
		return errors.Wrap(drain(w, stderr), "failed to drain stderr")
	})

	// Pipes must be fully read before waiting for the command.
	var result *multierror.Error
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Wait(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "%s failed", cmd.Name))
	}
	if err := f.Close(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "failed to close %s", outputPath))
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		result = multierror.Append(result, ctxErr)
	}

	r.logger.Debug().
		Str("cmd", cmd.Name).
		Str("output_size", humanize.IBytes(w.written)).
		Msg("command completed")

	if result.ErrorOrNil() != nil {
		exitCode := -1
		if c.ProcessState != nil {
			exitCode = c.ProcessState.ExitCode()
		}
		return &PipelineError{
			Command:  cmd.String(),
			ExitCode: exitCode,
			Errs:     result,
		}
	}

	return nil
}

// drain copies r into w chunk by chunk. After a write failure it keeps
// consuming r so that the producer never blocks, and returns the first
// write error once r is exhausted.
func drain(w io.Writer, r io.Reader) error {
	buf := make([]byte, drainBufSize)
	var writeErr error
	for {
		n, err := r.Read(buf)
		if n > 0 && writeErr == nil {
			if _, werr := w.Write(buf[:n]); werr != nil {
				writeErr = werr
			}
		}
		if err == io.EOF {
			return writeErr
		}
		if err != nil {
			if writeErr != nil {
				return writeErr
			}
			return err
		}
	}
}

// lockedWriter serializes whole-chunk writes from concurrent drains.
type lockedWriter struct {
	mu      sync.Mutex
	w       io.Writer
	written uint64
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.w.Write(p)
	l.written += uint64(n)

	return n, err
}
