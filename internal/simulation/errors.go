package simulation

import "errors"

var (
	ErrSimulationClosed = errors.New("simulation is closed")
	ErrAlreadyRunning   = errors.New("simulation is already running")
	ErrInvalidConfig    = errors.New("invalid scene configuration")
	ErrNoConfig         = errors.New("no scene configuration")
)
