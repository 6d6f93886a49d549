package status

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/common"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
)

const CmdName = "status"

type Options struct {
	*options.CommonOptions
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:               CmdName,
		Short:             fmt.Sprintf("Check the %s recording status", settings.CmdName),
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Run:               o.Run,
	}

	return cmd
}

func (o *Options) Run(cmd *cobra.Command, _ []string) {
	pid, err := common.ReadPidFile(settings.PidFile)
	if err == nil && common.IsProcessAlive(pid) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is running (PID %d)\n", settings.CmdName, pid)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not running\n", settings.CmdName)
	}
}
