package optimizer

import "errors"

// Sentinel kinds for optimizer errors and warnings.
var (
	// ErrNonConvergence is a warning: the PageRank seed hit its iteration cap
	// and the pipeline continued with best-effort scores.
	ErrNonConvergence = errors.New("pagerank did not converge")
	ErrNilGraph       = errors.New("nil graph")
)
