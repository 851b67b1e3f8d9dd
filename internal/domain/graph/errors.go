package graph

import "errors"

// Sentinel kinds for graph building.
var (
	// ErrInconsistentGraphState marks committed tallies that disagree with
	// the processed flags, e.g. after a crash in a non-transactional store.
	ErrInconsistentGraphState = errors.New("inconsistent graph state")
	ErrNoStore                = errors.New("graph builder has no store")
	ErrUnknownMode            = errors.New("unknown build mode")
)
