package attendance

import "errors"

var (
	// Punch errors
	ErrAlreadyPunchedIn = errors.New("an open session already exists for this employee")
	ErrNotPunchedIn     = errors.New("no open session found for this employee")
	ErrNoWindow         = errors.New("no shift window could be resolved for this day")

	// General errors
	ErrEventNotFound      = errors.New("attendance event not found")
	ErrInvalidAnomalyKind = errors.New("unknown anomaly kind")
	ErrEventNotAnomalous  = errors.New("event carries no anomaly flag")
)
