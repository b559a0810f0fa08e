package signal

import "errors"

var (
	ErrCycle        = errors.New("signal: binding would create a dependency cycle")
	ErrAlreadyBound = errors.New("signal: deferred signal is already bound")
	ErrForeignGraph = errors.New("signal: inputs belong to different graphs")
	ErrNilSignal    = errors.New("signal: nil input signal")
)
