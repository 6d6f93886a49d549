package wait

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
	"github.com/maxgio92/xperfasm/pkg/healthcheck"
)

const CmdName = "wait"

var ErrTimeout = errors.New("timeout waiting for recording readiness")

type Options struct {
	socketPath    string
	timeout       time.Duration
	retryInterval time.Duration

	*options.CommonOptions
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Wait for the %s recording to be ready", settings.CmdName),
		DisableAutoGenTag: true,
		RunE:              o.Run,
	}

	cmd.Flags().StringVarP(&o.socketPath, "socket-path", "s", settings.SockFile, fmt.Sprintf("Path to the %s socket file", settings.CmdName))
	cmd.Flags().DurationVar(&o.timeout, "timeout", time.Second*120, "Timeout")
	cmd.Flags().DurationVar(&o.retryInterval, "retry-interval", 500*time.Millisecond, "Interval between readiness checks")

	return cmd
}

func (o *Options) Run(_ *cobra.Command, _ []string) error {
	logger := o.Logger.With().Str("component", CmdName).Logger()

	start := time.Now()
	logger.Info().Msg("waiting for the recording to be ready")

	for {
		if time.Since(start) >= o.timeout {
			return ErrTimeout
		}
		if err := o.Ctx.Err(); err != nil {
			return err
		}

		// Check if socket exists.
		info, err := os.Stat(o.socketPath)
		if err != nil {
			if os.IsNotExist(err) {
				time.Sleep(o.retryInterval)
				continue
			}
			return fmt.Errorf("error checking socket: %w", err)
		}

		if info.Mode()&os.ModeSocket == 0 {
			return fmt.Errorf("path exists but is not a Unix socket: %s", o.socketPath)
		}

		resp, err := healthcheck.Request(o.socketPath, healthcheck.ReqReady, o.retryInterval)
		if err != nil {
			if errors.Is(err, syscall.EACCES) {
				return err
			}
			logger.Debug().Err(err).Msg("recording not ready")
			time.Sleep(o.retryInterval)
			continue
		}

		if resp == healthcheck.ReadyMsg {
			logger.Info().Msg("recording is ready")
			return nil
		}

		time.Sleep(o.retryInterval)
	}
}
