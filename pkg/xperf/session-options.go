package xperf

import (
	log "github.com/rs/zerolog"
)

type SessionOptions struct {
	toolPath      string
	providers     string
	symbolDir     string
	binTracePath  string
	textTracePath string

	runner Runner
	logger log.Logger
}

type SessionOption func(*Session)

// WithToolPath sets the path of the xperf executable.
func WithToolPath(path string) SessionOption {
	return func(o *Session) {
		o.toolPath = path
	}
}

// WithProviders sets the kernel providers enabled while recording.
func WithProviders(providers string) SessionOption {
	return func(o *Session) {
		o.providers = providers
	}
}

// WithSymbolDir sets the directory searched for debug symbols while
// converting the binary trace.
func WithSymbolDir(dir string) SessionOption {
	return func(o *Session) {
		o.symbolDir = dir
	}
}

func WithBinTracePath(path string) SessionOption {
	return func(o *Session) {
		o.binTracePath = path
	}
}

func WithTextTracePath(path string) SessionOption {
	return func(o *Session) {
		o.textTracePath = path
	}
}

func WithRunner(r Runner) SessionOption {
	return func(o *Session) {
		o.runner = r
	}
}

func WithLogger(logger log.Logger) SessionOption {
	return func(o *Session) {
		o.logger = logger
	}
}
