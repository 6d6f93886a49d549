package profiler

import (
	log "github.com/rs/zerolog"

	"github.com/maxgio92/xperfasm/pkg/xperf"
)

type XperfAsmOptions struct {
	xperfDir      string
	providers     string
	symbolDir     string
	binTracePath  string
	textTracePath string
	saveBinPath   string
	saveTextPath  string
	skipSec       float64
	eventNames    []string

	runner xperf.Runner
	logger log.Logger
}

type XperfAsmOption func(*XperfAsm)

// WithXperfDir sets the xperf installation directory. When empty, xperf is
// looked up in PATH.
func WithXperfDir(dir string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.xperfDir = dir
	}
}

func WithProviders(providers string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.providers = providers
	}
}

func WithSymbolDir(dir string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.symbolDir = dir
	}
}

func WithBinTracePath(path string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.binTracePath = path
	}
}

func WithTextTracePath(path string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.textTracePath = path
	}
}

// WithSaveBin copies the binary trace to path at the end of each trial.
func WithSaveBin(path string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.saveBinPath = path
	}
}

// WithSaveText copies the text trace to path at the end of each trial.
func WithSaveText(path string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.saveTextPath = path
	}
}

func WithSkip(skipSec float64) XperfAsmOption {
	return func(o *XperfAsm) {
		o.skipSec = skipSec
	}
}

func WithEventNames(names ...string) XperfAsmOption {
	return func(o *XperfAsm) {
		o.eventNames = names
	}
}

func WithRunner(r xperf.Runner) XperfAsmOption {
	return func(o *XperfAsm) {
		o.runner = r
	}
}

func WithLogger(logger log.Logger) XperfAsmOption {
	return func(o *XperfAsm) {
		o.logger = logger
	}
}
