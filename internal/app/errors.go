package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrEmptyInput means a weight class has neither matches nor a roster.
	ErrEmptyInput  = errors.New("weight class has no matches and no roster")
	ErrNoExporter  = errors.New("graph export not configured")
	ErrUnknownJob  = errors.New("unknown job kind")
	ErrNotStarted  = errors.New("service not started")
	ErrQueueClosed = errors.New("service stopped")
)
