package services

import "errors"

var (
	// ErrScheduleNotFound is returned for an unknown schedule ID.
	ErrScheduleNotFound = errors.New("schedule not found")
	// ErrSourceNotFound is returned for an unknown download source.
	ErrSourceNotFound = errors.New("source not found")
)
