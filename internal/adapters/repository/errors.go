package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidLimit     = errors.New("invalid limit")
	ErrInvalidScore     = errors.New("invalid score")
	ErrAlreadyProcessed = errors.New("match already processed")
	ErrConflictingMatch = errors.New("match id reused with different content")
	ErrInjectedFailure  = errors.New("injected commit failure")
)
