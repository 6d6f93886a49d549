package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/cmd/options"
	"github.com/maxgio92/xperfasm/pkg/cmd/parse"
	"github.com/maxgio92/xperfasm/pkg/cmd/record"
	"github.com/maxgio92/xperfasm/pkg/cmd/run"
	"github.com/maxgio92/xperfasm/pkg/cmd/status"
	"github.com/maxgio92/xperfasm/pkg/cmd/stop"
	"github.com/maxgio92/xperfasm/pkg/cmd/wait"
)

type Options struct {
	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = options.NewCommonOptions()

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if o == nil || o.CommonOptions == nil {
			return
		}
		o.Ctx = ctx
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *Options) {
		if o == nil || o.CommonOptions == nil {
			return
		}
		o.Logger = logger
	}
}

func NewCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   settings.CmdName,
		Short: fmt.Sprintf("%s is a sampling profiler reporting hot instruction addresses", settings.CmdName),
		Long: fmt.Sprintf(`
%s is a sampling profiler reporting hot instruction addresses.
It drives a system-wide %s recording, converts the binary trace to text, and
aggregates the samples of the target process by instruction address, symbol, and module.
`, settings.CmdName, settings.ToolName),
		DisableAutoGenTag: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return o.InitLogger()
		},
	}
	o.AddPersistentFlags(cmd.PersistentFlags())

	cmd.AddCommand(run.NewCommand(run.NewOptions(run.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(record.NewCommand(record.NewOptions(record.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(parse.NewCommand(parse.NewOptions(parse.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(wait.NewCommand(wait.NewOptions(wait.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(stop.NewCommand(stop.NewOptions(stop.WithCommonOptions(o.CommonOptions))))
	cmd.AddCommand(status.NewCommand(status.NewOptions(status.WithCommonOptions(o.CommonOptions))))

	return cmd
}

// Execute adds all child commands to the root commands and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := log.New(
		log.ConsoleWriter{Out: os.Stderr},
	).With().Timestamp().Logger()

	opts := NewOptions(
		WithContext(ctx),
		WithLogger(logger),
	)

	if err := NewCommand(opts).Execute(); err != nil {
		cancel()
		os.Exit(1)
	}
}
