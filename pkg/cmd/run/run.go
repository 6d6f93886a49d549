package run

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
	"github.com/maxgio92/xperfasm/pkg/profiler"
	"github.com/maxgio92/xperfasm/pkg/report"
)

const CmdName = "run"

type Options struct {
	options.ReportOptions

	*options.CommonOptions
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName + " -- <command> [args...]",
		Short: "Profile a command and report its hottest instruction addresses",
		Long: fmt.Sprintf(`
%s starts a system-wide %s recording, runs the command until it exits,
and aggregates the samples of its process by instruction address.
`, CmdName, settings.ToolName),
		DisableAutoGenTag: true,
		Args:              cobra.MinimumNArgs(1),
		RunE:              o.Run,
	}

	o.AddFlags(cmd.Flags())
	o.AddSaveFlags(cmd.Flags())

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, args []string) error {
	logger := o.Logger.With().Str("component", CmdName).Logger()

	prof := profiler.NewXperfAsm(o.Ctx,
		append(o.CommonOptions.XperfAsmOptions(), o.ReportOptions.XperfAsmOptions()...)...,
	)
	if msgs, ok := prof.CheckSupport(); !ok {
		for _, msg := range msgs {
			logger.Error().Str("profiler", prof.Label()).Msg(msg)
		}
		return profiler.ErrUnsupported
	}

	if err := prof.OnTrialStart(o.Ctx); err != nil {
		return errors.Wrap(err, "failed to start recording")
	}

	// The recording must be stopped also when the run is interrupted.
	endCtx := context.WithoutCancel(o.Ctx)

	target := exec.CommandContext(o.Ctx, args[0], args[1:]...)
	target.Stdin = cmd.InOrStdin()
	target.Stdout = cmd.OutOrStdout()
	target.Stderr = cmd.ErrOrStderr()

	if err := target.Start(); err != nil {
		if abortErr := prof.Abort(endCtx); abortErr != nil {
			logger.Warn().Err(abortErr).Msg("failed to stop recording")
		}
		return errors.Wrapf(err, "failed to start %s", args[0])
	}
	pid := target.Process.Pid
	logger.Info().Int("pid", pid).Str("command", args[0]).Msg("target started")

	if err := target.Wait(); err != nil {
		logger.Warn().Err(err).Int("pid", pid).Msg("target exited with error")
	}

	res, err := prof.OnTrialEnd(endCtx, pid)
	if err != nil {
		return errors.Wrap(err, "failed to end trial")
	}
	if res.IsEmpty() {
		logger.Warn().Int("pid", pid).Msg("no samples recorded for the target")
	}

	return o.Write(cmd.OutOrStdout(), res,
		report.WithProfiler(prof.Label()),
		report.WithPID(pid),
		report.WithSkip(o.SkipSec),
	)
}
