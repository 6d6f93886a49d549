package record

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/output"
	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/common"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
	"github.com/maxgio92/xperfasm/pkg/healthcheck"
	"github.com/maxgio92/xperfasm/pkg/profiler"
	"github.com/maxgio92/xperfasm/pkg/report"
)

const CmdName = "record"

var ErrPIDRequired = errors.New("the PID of the target process is required")

type Options struct {
	pid        int
	detach     bool
	status     bool
	socketPath string

	options.ReportOptions

	*options.CommonOptions
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName,
		Short: "Record until stopped and report the hottest addresses of a process",
		Long: fmt.Sprintf(`
%s starts a system-wide %s recording and waits for Ctrl+C or for the stop command.
The samples of the process with the given PID are then aggregated by instruction address.
`, CmdName, settings.ToolName),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}

	cmd.Flags().IntVar(&o.pid, "pid", 0, "PID of the target process")
	cmd.Flags().BoolVarP(&o.detach, "detach", "d", false, fmt.Sprintf("Run %s as daemon", settings.CmdName))
	cmd.Flags().BoolVar(&o.status, "status", true, "Periodically print a status of the recording")
	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", settings.SockFile, fmt.Sprintf("Path to the %s socket file", settings.CmdName))
	o.AddFlags(cmd.Flags())
	o.AddSaveFlags(cmd.Flags())

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if o.pid <= 0 {
		return ErrPIDRequired
	}
	if o.detach {
		return o.daemonize()
	}
	logger := o.Logger.With().Str("component", CmdName).Logger()

	// Store PID file.
	if err := common.WritePidFile(settings.PidFile, os.Getpid()); err != nil {
		logger.Warn().Err(err).Msg("failed to write PID file")
	}
	defer os.Remove(settings.PidFile)

	prof := profiler.NewXperfAsm(o.Ctx,
		append(o.CommonOptions.XperfAsmOptions(), o.ReportOptions.XperfAsmOptions()...)...,
	)
	if msgs, ok := prof.CheckSupport(); !ok {
		for _, msg := range msgs {
			logger.Error().Str("profiler", prof.Label()).Msg(msg)
		}
		return profiler.ErrUnsupported
	}

	ctx, stop := context.WithCancel(o.Ctx)
	defer stop()

	hc := healthcheck.NewHealthCheckServer(o.socketPath, o.Logger, stop)
	if err := hc.InitializeListener(ctx); err != nil {
		return errors.Wrap(err, "failed to start control socket")
	}
	defer hc.ShutdownListener()

	if err := prof.OnTrialStart(o.Ctx); err != nil {
		return errors.Wrap(err, "failed to start recording")
	}
	hc.NotifyReadiness()

	if o.status {
		start := time.Now()
		go output.StatusBar(ctx, time.Second, func() {
			output.PrintRight(cmd.ErrOrStderr(), output.PrettyRecordStatus(time.Since(start), o.Providers, o.pid))
		})
	}

	<-ctx.Done()
	if o.status {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	logger.Info().Msg("stopping recording")

	res, err := prof.OnTrialEnd(context.WithoutCancel(o.Ctx), o.pid)
	if err != nil {
		return errors.Wrap(err, "failed to end trial")
	}
	if res.IsEmpty() {
		logger.Warn().Int("pid", o.pid).Msg("no samples recorded for the target")
	}

	return o.Write(cmd.OutOrStdout(), res,
		report.WithProfiler(prof.Label()),
		report.WithPID(o.pid),
		report.WithSkip(o.SkipSec),
	)
}

func (o *Options) daemonize() error {
	// Check if already running.
	if common.IsDaemonRunning() {
		fmt.Println("Daemon already running")
		return nil
	}

	// Start the daemon process with the same flags, in foreground.
	args := append(slices.Clone(os.Args[1:]), "--detach=false", "--status=false")

	cmd := exec.Command(os.Args[0], args...)
	cmd.SysProcAttr = common.DetachedProcAttr()

	// Redirect output to log file.
	if settings.LogFile != "" {
		f, err := os.OpenFile(settings.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			o.Logger.Error().Err(err).Msg("failed to open log file")
			return err
		}
		defer f.Close()
		cmd.Stdout = f
		cmd.Stderr = f
	}

	err := cmd.Start()
	if err != nil {
		o.Logger.Error().Err(err).Msgf("failed to start %s", settings.CmdName)
		return err
	}

	// Store PID file.
	err = common.WritePidFile(settings.PidFile, cmd.Process.Pid)
	if err != nil {
		o.Logger.Error().Err(err).Msg("failed to write PID file")
		return err
	}
	o.Logger.Info().Int("pid", cmd.Process.Pid).Str("log", settings.LogFile).Msgf("%s started", settings.CmdName)

	return cmd.Process.Release()
}
