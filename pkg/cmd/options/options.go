package options

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/maxgio92/xperfasm/internal/settings"
	"github.com/maxgio92/xperfasm/pkg/events"
	"github.com/maxgio92/xperfasm/pkg/profiler"
)

const logLevelInfo = "info"

// CommonOptions are shared by all the commands. The xperf configuration is
// bound to persistent flags of the root command.
type CommonOptions struct {
	Ctx      context.Context
	Logger   log.Logger
	LogLevel string

	XperfDir      string
	Providers     string
	SymbolDir     string
	BinTracePath  string
	TextTracePath string
	SkipSec       float64
	EventNames    []string
}

func NewCommonOptions() *CommonOptions {
	return &CommonOptions{
		Ctx:           context.Background(),
		Logger:        log.Nop(),
		LogLevel:      logLevelInfo,
		Providers:     settings.DefaultProviders,
		BinTracePath:  settings.BinTraceFile,
		TextTracePath: settings.TextTraceFile,
		EventNames:    events.DefaultEventNames,
	}
}

func (o *CommonOptions) AddPersistentFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.LogLevel, "log-level", logLevelInfo, "Sets the log level (trace, debug, info, warn, error, fatal, panic)")
	flags.StringVar(&o.XperfDir, "xperf-dir", "", fmt.Sprintf("Directory containing %s (default: resolved on PATH)", settings.ToolName))
	flags.StringVar(&o.Providers, "providers", settings.DefaultProviders, "Kernel providers to enable")
	flags.StringVar(&o.SymbolDir, "symbol-dir", "", fmt.Sprintf("Debug symbols directory, exported as %s while converting", settings.SymbolPathEnv))
	flags.StringVar(&o.BinTracePath, "bin-trace", settings.BinTraceFile, "Path of the binary trace")
	flags.StringVar(&o.TextTracePath, "text-trace", settings.TextTraceFile, "Path of the text trace")
	flags.Float64Var(&o.SkipSec, "skip", 0, "Ignore the samples of the first seconds of the trace")
	flags.StringSliceVar(&o.EventNames, "events", events.DefaultEventNames, "Sampled event names to aggregate")
}

// InitLogger applies the configured log level to the logger.
func (o *CommonOptions) InitLogger() error {
	logLevel, err := log.ParseLevel(o.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	o.Logger = o.Logger.Level(logLevel)

	return nil
}

// XperfAsmOptions returns the profiler configuration.
func (o *CommonOptions) XperfAsmOptions() []profiler.XperfAsmOption {
	return []profiler.XperfAsmOption{
		profiler.WithXperfDir(o.XperfDir),
		profiler.WithProviders(o.Providers),
		profiler.WithSymbolDir(o.SymbolDir),
		profiler.WithBinTracePath(o.BinTracePath),
		profiler.WithTextTracePath(o.TextTracePath),
		profiler.WithSkip(o.SkipSec),
		profiler.WithEventNames(o.EventNames...),
		profiler.WithLogger(o.Logger),
	}
}
