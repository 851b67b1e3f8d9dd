package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
	"github.com/okian/wrestlerank/pkg/logger"
)

// Handle runs one job. It implements worker.Handler.
func (s *Service) Handle(ctx context.Context, j model.Job) error { //nolint:gocritic // hugeParam
	switch j.Kind {
	case model.JobBuild:
		_, err := s.BuildRelationships(ctx, graph.Request{WeightClass: j.WeightClass, Mode: graph.Incremental})
		return err
	case model.JobScore:
		_, err := s.ComputePowerScores(ctx, j.WeightClass, nil)
		return err
	case model.JobOptimize:
		_, err := s.OptimizeRanking(ctx, j.WeightClass, j.Seed)
		return err
	case model.JobPipeline:
		return s.RunClass(ctx, j.WeightClass, j.Seed)
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, j.Kind)
}

// Submit queues a job for class. It reports coalesced when an identical job
// is already pending; that job's outcome goes to its own submitter.
func (s *Service) Submit(ctx context.Context, kind model.JobKind, class string, seed *int64, reply chan<- model.JobOutcome) (coalesced bool, err error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownJob, kind)
	}
	if !s.started() {
		return false, ErrNotStarted
	}
	j := model.Job{
		ID:          uuid.NewString(),
		Kind:        kind,
		WeightClass: weightclass.Normalize(class),
		Seed:        seed,
		EnqueuedAt:  s.now(),
		Reply:       reply,
	}
	if s.dedupe.SeenAndRecord(ctx, j.Key()) {
		s.logger.Debug(ctx, "job coalesced", logger.String("key", j.Key()))
		return true, nil
	}
	if err := s.queue.Enqueue(ctx, j); err != nil {
		s.dedupe.Unrecord(ctx, j.Key())
		return false, fmt.Errorf("submit %s: %w", j.Key(), err)
	}
	return false, nil
}

// RunAll runs the full pipeline for every class on the worker pool and
// waits for all of them. An empty classes list means every stored class.
// A class whose pipeline is already pending is run inline; the class lock
// serializes it with the queued run and incremental builds are idempotent.
func (s *Service) RunAll(ctx context.Context, classes []string, seed *int64) ([]model.JobOutcome, error) {
	if !s.started() {
		return nil, ErrNotStarted
	}
	if len(classes) == 0 {
		var err error
		if classes, err = s.store.WeightClasses(ctx); err != nil {
			return nil, fmt.Errorf("list weight classes: %w", err)
		}
	}
	classes = uniqueClasses(classes)
	if len(classes) == 0 {
		return nil, fmt.Errorf("run all: %w", ErrEmptyInput)
	}

	reply := make(chan model.JobOutcome, len(classes))
	outcomes := make([]model.JobOutcome, 0, len(classes))
	waiting := 0
	for _, c := range classes {
		coalesced, err := s.Submit(ctx, model.JobPipeline, c, seed, reply)
		if err != nil {
			return outcomes, err
		}
		if !coalesced {
			waiting++
			continue
		}
		start := time.Now()
		err = s.RunClass(ctx, c, seed)
		outcomes = append(outcomes, model.JobOutcome{
			WeightClass: c,
			Kind:        model.JobPipeline,
			Err:         err,
			Took:        time.Since(start),
		})
	}

	for waiting > 0 {
		select {
		case o := <-reply:
			outcomes = append(outcomes, o)
			waiting--
		case <-ctx.Done():
			return outcomes, ctx.Err()
		}
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].WeightClass < outcomes[j].WeightClass })
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.WeightClass, o.Err))
		}
	}
	s.logger.Info(ctx, "all classes run",
		logger.Int("classes", len(outcomes)),
		logger.Int("failed", len(errs)))
	return outcomes, errors.Join(errs...)
}

func uniqueClasses(classes []string) []string {
	seen := make(map[string]struct{}, len(classes))
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		c = weightclass.Normalize(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
