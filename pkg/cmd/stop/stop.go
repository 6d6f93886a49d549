package stop

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/common"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
	"github.com/maxgio92/xperfasm/pkg/healthcheck"
)

const CmdName = "stop"

var ErrStillRunning = errors.New("recording still running")

type Options struct {
	socketPath string
	timeout    time.Duration

	*options.CommonOptions
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Stop the %s recording", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", settings.SockFile, fmt.Sprintf("Path to the %s socket file", settings.CmdName))
	cmd.Flags().DurationVar(&o.timeout, "timeout", time.Second*120, "Time to wait for the trace to be converted")

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) error {
	if err := healthcheck.RequestStop(o.socketPath, 5*time.Second); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s not running or socket not found\n", settings.CmdName)
		o.Logger.Debug().Err(err).Msg("stop request failed")
		return nil
	}

	pid, err := common.ReadPidFile(settings.PidFile)
	if err != nil {
		// Not a daemon, the recording reports to its own terminal.
		fmt.Fprintf(cmd.OutOrStdout(), "%s stopping\n", settings.CmdName)
		return nil
	}

	// Wait for the trace to be converted and the process to exit.
	deadline := time.Now().Add(o.timeout)
	for time.Now().Before(deadline) {
		if !common.IsProcessAlive(pid) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s stopped (PID %d), see %s\n", settings.CmdName, pid, settings.LogFile)
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}

	return errors.Wrapf(ErrStillRunning, "PID %d", pid)
}
