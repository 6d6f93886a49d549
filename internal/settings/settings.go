package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	CmdName = "xperfasm"

	// ToolName is the executable driving the kernel sampling.
	ToolName = "xperf"

	// DefaultProviders are the minimum providers needed for SampledProfile
	// events to be generated.
	DefaultProviders = "loader+proc_thread+profile"

	// SymbolPathEnv points xperf to debug symbols while converting traces.
	SymbolPathEnv = "_NT_SYMBOL_PATH"

	// BinTraceExt lets Windows Performance Analyzer open binary traces as is.
	BinTraceExt = ".etl"

	DefaultTopN = 20
)

var (
	PidFile       = filepath.Join(os.TempDir(), fmt.Sprintf("%s.pid", CmdName))
	LogFile       = filepath.Join(os.TempDir(), fmt.Sprintf("%s.log", CmdName))
	SockFile      = filepath.Join(os.TempDir(), fmt.Sprintf("%s.sock", CmdName))
	BinTraceFile  = filepath.Join(os.TempDir(), CmdName+BinTraceExt)
	TextTraceFile = filepath.Join(os.TempDir(), CmdName+".txt")
)
