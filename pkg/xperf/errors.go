package xperf

import (
	"github.com/pkg/errors"
)

var (
	ErrToolPathEmpty  = errors.New("xperf path is empty")
	ErrBinTraceEmpty  = errors.New("binary trace path is empty")
	ErrTextTraceEmpty = errors.New("text trace path is empty")
	ErrInvalidState   = errors.New("invalid session state")
	ErrStartFailed    = errors.New("failed to start xperf")
	ErrStopFailed     = errors.New("failed to stop xperf")
	ErrConvertFailed  = errors.New("failed to convert xperf trace")
)
