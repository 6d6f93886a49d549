package xperf

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/events"
	"github.com/maxgio92/xperfasm/pkg/runner"
)

// Runner runs the xperf control and conversion commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*runner.Result, error)
	RunStreaming(ctx context.Context, cmd runner.Command, outputPath string) error
}

// Session drives one xperf recording for a single trial: it starts the
// kernel sampling, stops it into a binary trace, converts that into a text
// trace and aggregates the samples of the target process.
//
// xperf cannot filter events by process while recording, hence the target
// pid is bound late with BindPID, once the process is known.
type Session struct {
	state State
	pid   string

	*SessionOptions
}

func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{
		state: StateIdle,
		SessionOptions: &SessionOptions{
			providers: settings.DefaultProviders,
			logger:    log.Nop(),
		},
	}
	for _, f := range opts {
		f(s)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	if s.runner == nil {
		s.runner = runner.New(runner.WithLogger(s.logger))
	}

	return s, nil
}

func (s *Session) validate() error {
	if s.toolPath == "" {
		return ErrToolPathEmpty
	}
	if s.binTracePath == "" {
		return ErrBinTraceEmpty
	}
	if s.textTracePath == "" {
		return ErrTextTraceEmpty
	}

	return nil
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) PID() string {
	return s.pid
}

func (s *Session) BinTracePath() string {
	return s.binTracePath
}

func (s *Session) TextTracePath() string {
	return s.textTracePath
}

// Start enables the kernel sampling providers.
func (s *Session) Start(ctx context.Context) error {
	if s.state != StateIdle {
		return errors.Wrapf(ErrInvalidState, "cannot start a %s session", s.state)
	}

	s.logger.Debug().Str("providers", s.providers).Msg("starting xperf")
	res, err := s.runner.Run(ctx, s.toolPath, "-on", s.providers)
	if err := commandError(ErrStartFailed, res, err); err != nil {
		return err
	}
	s.state = StateRecording

	return nil
}

// BindPID sets the process whose samples are aggregated. It can be set
// only once per session.
func (s *Session) BindPID(pid string) {
	if pid == "" || pid == "0" {
		panic("xperf: binding an uninitialized pid")
	}
	if s.pid != "" && s.pid != pid {
		panic(fmt.Sprintf("xperf: pid already bound to %s, cannot rebind to %s", s.pid, pid))
	}
	s.pid = pid
}

// Stop stops the recording, flushing the binary trace, and converts it into
// the text trace.
func (s *Session) Stop(ctx context.Context) error {
	if s.state != StateRecording {
		return errors.Wrapf(ErrInvalidState, "cannot stop a %s session", s.state)
	}

	s.logger.Debug().Str("path", s.binTracePath).Msg("stopping xperf")
	res, err := s.runner.Run(ctx, s.toolPath, "-d", s.binTracePath)
	if err := commandError(ErrStopFailed, res, err); err != nil {
		return err
	}
	s.state = StateStopped

	cmd := runner.Command{
		Name: s.toolPath,
		Args: []string{"-i", s.binTracePath, "-symbols", "-a", "dumper"},
	}
	if s.symbolDir != "" {
		cmd.Env = []string{settings.SymbolPathEnv + "=" + s.symbolDir}
	}
	s.logger.Debug().Str("path", s.textTracePath).Msg("converting xperf trace")
	if err := s.runner.RunStreaming(ctx, cmd, s.textTracePath); err != nil {
		return fmt.Errorf("%w: %w", ErrConvertFailed, err)
	}
	s.state = StateConverted

	return nil
}

// Parse aggregates the samples of the bound process found in the text
// trace, dropping the ones recorded in the first skipSec seconds.
// A text trace that cannot be read yields no samples.
// Parse panics if the trace was not converted or no pid was bound.
func (s *Session) Parse(skipSec float64, eventNames []string) *events.Events {
	if s.state != StateConverted {
		panic(fmt.Sprintf("xperf: cannot parse a %s session", s.state))
	}
	if s.pid == "" {
		panic("xperf: cannot parse without a bound pid")
	}
	if len(eventNames) == 0 {
		eventNames = events.DefaultEventNames
	}

	p := events.NewParser(
		events.WithPID(s.pid),
		events.WithSkip(skipSec),
		events.WithEventNames(eventNames...),
		events.WithLogger(s.logger),
	)
	res, err := p.ParseFile(s.textTracePath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("no samples available")
	}
	s.state = StateParsed

	return res
}

func commandError(sentinel error, res *runner.Result, err error) error {
	switch {
	case err != nil:
		return fmt.Errorf("%w: %w", sentinel, err)
	case !res.Success():
		return fmt.Errorf("%w: exit code %d: %s", sentinel, res.ExitCode, res.Output())
	}

	return nil
}
