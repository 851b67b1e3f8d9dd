package powerscore

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidModifier = errors.New("invalid score modifier")
	ErrUnknownPolicy   = errors.New("unknown forfeit policy")
)
