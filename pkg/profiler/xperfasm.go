package profiler

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/events"
	"github.com/maxgio92/xperfasm/pkg/runner"
	"github.com/maxgio92/xperfasm/pkg/xperf"
)

const (
	label       = "xperfasm"
	description = "Windows xperf sampling profiler, aggregating hot instruction addresses"
)

// XperfAsm samples a benchmark trial with xperf.
//
// Unlike perf on Linux, xperf cannot be started for a single process: it
// records the whole system from OnTrialStart to OnTrialEnd, and samples are
// filtered by the pid of the target process afterwards. This leaves the
// target command line untouched.
type XperfAsm struct {
	toolPath string
	failMsgs []string
	session  *xperf.Session

	*XperfAsmOptions
}

var _ Profiler = (*XperfAsm)(nil)

// NewXperfAsm resolves xperf and checks that it can be run. The outcome is
// reported by CheckSupport.
func NewXperfAsm(ctx context.Context, opts ...XperfAsmOption) *XperfAsm {
	x := &XperfAsm{
		XperfAsmOptions: &XperfAsmOptions{
			providers:     settings.DefaultProviders,
			binTracePath:  settings.BinTraceFile,
			textTracePath: settings.TextTraceFile,
			eventNames:    events.DefaultEventNames,
			logger:        log.Nop(),
		},
	}
	for _, f := range opts {
		f(x)
	}
	if x.runner == nil {
		x.runner = runner.New(runner.WithLogger(x.logger))
	}

	x.toolPath = settings.ToolName
	if x.xperfDir != "" {
		x.toolPath = filepath.Join(x.xperfDir, settings.ToolName)
	}
	x.failMsgs = x.tryTool(ctx)

	return x
}

func (x *XperfAsm) tryTool(ctx context.Context) []string {
	path, err := exec.LookPath(x.toolPath)
	if err != nil {
		return []string{err.Error()}
	}
	res, err := x.runner.Run(ctx, path)
	if err != nil {
		return []string{err.Error()}
	}
	if !res.Success() {
		return res.Lines
	}
	x.logger.Debug().Str("path", path).Msg("xperf found")
	x.toolPath = path

	return nil
}

func (x *XperfAsm) CheckSupport() ([]string, bool) {
	if len(x.failMsgs) > 0 {
		return x.failMsgs, false
	}
	return nil, true
}

// OnTrialStart starts the system-wide recording.
func (x *XperfAsm) OnTrialStart(ctx context.Context) error {
	if _, ok := x.CheckSupport(); !ok {
		return ErrUnsupported
	}

	session, err := xperf.NewSession(
		xperf.WithToolPath(x.toolPath),
		xperf.WithProviders(x.providers),
		xperf.WithSymbolDir(x.symbolDir),
		xperf.WithBinTracePath(x.binTracePath),
		xperf.WithTextTracePath(x.textTracePath),
		xperf.WithRunner(x.runner),
		xperf.WithLogger(x.logger),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create xperf session")
	}
	if err := session.Start(ctx); err != nil {
		return err
	}
	x.session = session
	x.logger.Info().Str("providers", x.providers).Msg("xperf recording started")

	return nil
}

// OnTrialEnd stops the recording and aggregates the samples of pid.
func (x *XperfAsm) OnTrialEnd(ctx context.Context, pid int) (*events.Events, error) {
	if pid == 0 {
		return nil, ErrPIDNotInitialized
	}
	if x.session == nil {
		return nil, ErrTrialNotStarted
	}
	session := x.session
	x.session = nil

	session.BindPID(strconv.Itoa(pid))
	if err := session.Stop(ctx); err != nil {
		return nil, err
	}
	x.logger.Info().Str("path", session.TextTracePath()).Msg("xperf recording stopped")

	res := session.Parse(x.skipSec, x.eventNames)
	x.saveTraces(session)

	return res, nil
}

// Abort stops the recording of a trial whose target could not be launched.
// The trace is converted but not parsed.
func (x *XperfAsm) Abort(ctx context.Context) error {
	if x.session == nil {
		return ErrTrialNotStarted
	}
	session := x.session
	x.session = nil

	return session.Stop(ctx)
}

func (x *XperfAsm) Label() string {
	return label
}

func (x *XperfAsm) Description() string {
	return description
}

func (x *XperfAsm) saveTraces(session *xperf.Session) {
	for _, t := range []struct{ src, dst, kind string }{
		{session.BinTracePath(), x.saveBinPath, "binary"},
		{session.TextTracePath(), x.saveTextPath, "text"},
	} {
		if t.dst == "" {
			continue
		}
		if err := copyFile(t.src, t.dst); err != nil {
			x.logger.Warn().Err(err).Str("kind", t.kind).Msg("failed to save trace")
			continue
		}
		x.logger.Info().Str("kind", t.kind).Str("path", t.dst).Msg("trace saved")
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "failed to open trace")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "failed to create trace copy")
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrap(err, "failed to copy trace")
	}

	return out.Close()
}
