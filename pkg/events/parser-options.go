package events

import (
	log "github.com/rs/zerolog"
)

type ParserOptions struct {
	pid        string
	skipSec    float64
	eventNames []string

	logger log.Logger
}

type ParserOption func(*Parser)

// WithPID sets the id of the process whose samples are aggregated.
func WithPID(pid string) ParserOption {
	return func(o *Parser) {
		o.pid = pid
	}
}

// WithSkip drops samples recorded before skipSec seconds of trace time.
func WithSkip(skipSec float64) ParserOption {
	return func(o *Parser) {
		o.skipSec = skipSec
	}
}

func WithEventNames(names ...string) ParserOption {
	return func(o *Parser) {
		o.eventNames = names
	}
}

func WithLogger(logger log.Logger) ParserOption {
	return func(o *Parser) {
		o.logger = logger
	}
}
