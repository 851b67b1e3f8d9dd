package model

import "errors"

// Sentinel kinds for record-level problems. Neither aborts a run; callers
// skip the record and count it.
var (
	ErrMalformedRecord = errors.New("malformed match record")
	ErrUnknownEntity   = errors.New("unknown entity")
)
