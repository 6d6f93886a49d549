package parse

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
	"github.com/maxgio92/xperfasm/pkg/events"
	"github.com/maxgio92/xperfasm/pkg/report"
)

const CmdName = "parse"

var ErrPIDRequired = errors.New("the PID of the target process is required")

type Options struct {
	pid int

	options.ReportOptions

	*options.CommonOptions
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   CmdName + " [text-trace]",
		Short: "Report the hottest addresses of a process from an existing text trace",
		Long: fmt.Sprintf(`
%s aggregates a text trace produced by "%s -a dumper" for the process with the given PID.
The trace defaults to the one of the last recording.
`, CmdName, settings.ToolName),
		DisableAutoGenTag: true,
		Args:              cobra.MaximumNArgs(1),
		RunE:              o.Run,
	}

	cmd.Flags().IntVar(&o.pid, "pid", 0, "PID of the target process")
	o.AddFlags(cmd.Flags())

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, args []string) error {
	if o.pid <= 0 {
		return ErrPIDRequired
	}
	path := o.TextTracePath
	if len(args) > 0 {
		path = args[0]
	}

	parser := events.NewParser(
		events.WithPID(strconv.Itoa(o.pid)),
		events.WithSkip(o.SkipSec),
		events.WithEventNames(o.EventNames...),
		events.WithLogger(o.Logger.With().Str("component", CmdName).Logger()),
	)
	res, err := parser.ParseFile(path)
	if errors.Is(err, events.ErrTraceRead) {
		// Reported like an empty recording.
		o.Logger.Warn().Err(err).Msg("no samples available")
	} else if err != nil {
		return errors.Wrap(err, "failed to parse text trace")
	}

	return o.Write(cmd.OutOrStdout(), res,
		report.WithProfiler(settings.CmdName),
		report.WithPID(o.pid),
		report.WithSkip(o.SkipSec),
	)
}
