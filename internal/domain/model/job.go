package model

import (
	"fmt"
	"time"
)

// JobKind selects which pipeline steps a job runs.
type JobKind string

const (
	JobBuild    JobKind = "build"
	JobScore    JobKind = "score"
	JobOptimize JobKind = "optimize"
	// JobPipeline builds, optimizes and then scores against the new order.
	JobPipeline JobKind = "pipeline"
)

// Valid reports whether k is a known kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobBuild, JobScore, JobOptimize, JobPipeline:
		return true
	}
	return false
}

// JobOutcome is delivered on a job's reply channel once it finishes.
type JobOutcome struct {
	JobID       string
	WeightClass string
	Kind        JobKind
	Err         error
	Took        time.Duration
}

// Job is one unit of per-weight-class work for the worker pool.
type Job struct {
	ID          string
	Kind        JobKind
	WeightClass string
	Seed        *int64
	EnqueuedAt  time.Time
	// Reply, when set, receives exactly one outcome. It must be buffered.
	Reply chan<- JobOutcome
}

// Key groups jobs that are interchangeable while pending.
func (j Job) Key() string {
	return fmt.Sprintf("%s/%s", j.Kind, j.WeightClass)
}
