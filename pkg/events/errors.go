package events

import (
	"github.com/pkg/errors"
)

var (
	ErrPIDEmpty        = errors.New("target pid is empty")
	ErrEventNamesEmpty = errors.New("no event names configured")
	ErrTraceRead       = errors.New("failed to read text trace")
)
