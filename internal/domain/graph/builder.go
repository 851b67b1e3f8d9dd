package graph

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/okian/wrestlerank/pkg/metrics"
)

// Mode selects between rebuilding and catching up.
type Mode int

const (
	// Incremental folds in only Unprocessed matches.
	Incremental Mode = iota
	// Full discards the affected classes' tallies and replays every match.
	Full
)

func (m Mode) String() string {
	if m == Full {
		return "full"
	}
	return "incremental"
}

// ParseMode maps "full" / "incremental" onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "full":
		return Full, nil
	case "", "incremental":
		return Incremental, nil
	}
	return Incremental, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Store is the persistence the builder needs. Implementations must make
// CommitBatch and ReplaceTallies atomic.
type Store interface {
	WeightClasses(ctx context.Context) ([]string, error)
	Matches(ctx context.Context, classes []string, status *model.MatchStatus) ([]model.StoredMatch, error)
	Roster(ctx context.Context, class string) ([]model.Entity, error)
	Tallies(ctx context.Context, classes []string) ([]model.Tally, error)
	CommitBatch(ctx context.Context, batch model.Batch) error
	ReplaceTallies(ctx context.Context, class string, tallies []model.Tally) error
	Reset(ctx context.Context, classes []string) error
}

// Request mirrors build_relationships. An empty WeightClass means every
// class known to the store.
type Request struct {
	WeightClass     string
	Mode            Mode
	IncludeAdjacent bool
	ResetFirst      bool
}

// Report summarises one build.
type Report struct {
	Mode             Mode
	Classes          []string
	Processed        int
	SkippedMalformed int
	SkippedUnknown   int
	SkippedNoContest int
	Batches          int
	FailedBatches    int
	Repairs          int
	Duration         time.Duration
}

// Result carries the materialized graphs keyed by weight class.
type Result struct {
	Graphs map[string]*Graph
	Report Report
}

// Builder turns stored match records into relationship graphs.
type Builder struct {
	store     Store
	batchSize int
	weights   ResultWeights
	coWeight  float64
	log       logger.Logger
}

// NewBuilder creates a builder over store.
func NewBuilder(store Store, opts ...Option) *Builder {
	b := &Builder{
		store:     store,
		batchSize: DefaultBatchSize,
		weights:   ResultWeights{},
		coWeight:  DefaultCommonOpponentWeight,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Scope resolves the classes a request targets and the classes whose
// matches it must ingest (targets plus neighbours when adjacency is on).
// Both lists are sorted; callers lock the ingest list in that order.
func (b *Builder) Scope(ctx context.Context, req Request) (targets, ingest []string, err error) {
	if b.store == nil {
		return nil, nil, ErrNoStore
	}
	if req.WeightClass != "" {
		targets = []string{weightclass.Normalize(req.WeightClass)}
	} else {
		targets, err = b.store.WeightClasses(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list weight classes: %w", err)
		}
	}

	set := make(map[string]struct{})
	for _, c := range targets {
		set[c] = struct{}{}
		if req.IncludeAdjacent {
			for _, n := range weightclass.Adjacent(c) {
				set[n] = struct{}{}
			}
		}
	}
	for c := range set {
		ingest = append(ingest, c)
	}
	sort.Strings(targets)
	sort.Strings(ingest)
	return targets, ingest, nil
}

// Build ingests matches for the request's classes and materializes one graph
// per target class. Bad records and failed batches are counted in the report
// and never abort the build; store read failures do.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	targets, ingest, err := b.Scope(ctx, req)
	if err != nil {
		return nil, err
	}
	report := Report{Mode: req.Mode, Classes: targets}

	switch {
	case req.Mode == Full || req.ResetFirst:
		if err := b.store.Reset(ctx, ingest); err != nil {
			return nil, fmt.Errorf("reset %v: %w", ingest, err)
		}
		b.log.Info(ctx, "relationships reset", logger.Any("weight_classes", ingest), logger.String("mode", req.Mode.String()))
	case req.Mode == Incremental:
		for _, class := range ingest {
			repaired, err := b.Reconcile(ctx, class)
			if err != nil {
				return nil, err
			}
			if repaired {
				report.Repairs++
			}
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, req.Mode)
	}

	for _, class := range ingest {
		if err := b.ingest(ctx, class, &report); err != nil {
			return nil, err
		}
	}

	graphs := make(map[string]*Graph, len(targets))
	for _, class := range targets {
		g, err := b.Materialize(ctx, class, req.IncludeAdjacent)
		if err != nil {
			return nil, err
		}
		graphs[class] = g
	}

	report.Duration = time.Since(start)
	metrics.RecordBuildDuration(float64(report.Duration.Milliseconds()))
	b.log.Info(ctx, "relationships built",
		logger.String("mode", req.Mode.String()),
		logger.Any("weight_classes", targets),
		logger.Int("processed", report.Processed),
		logger.Int("batches", report.Batches),
		logger.Duration("took", report.Duration))
	if report.SkippedMalformed > 0 || report.SkippedUnknown > 0 || report.FailedBatches > 0 {
		b.log.Warn(ctx, "relationship build skipped records",
			logger.Int("malformed", report.SkippedMalformed),
			logger.Int("unknown_entity", report.SkippedUnknown),
			logger.Int("failed_batches", report.FailedBatches))
	}
	return &Result{Graphs: graphs, Report: report}, nil
}

// ingest commits every Unprocessed match of class in bounded batches.
func (b *Builder) ingest(ctx context.Context, class string, report *Report) error {
	unprocessed := model.StatusUnprocessed
	pending, err := b.store.Matches(ctx, []string{class}, &unprocessed)
	if err != nil {
		return fmt.Errorf("load unprocessed matches for %s: %w", class, err)
	}
	known, err := b.rosterSet(ctx, class)
	if err != nil {
		return err
	}

	records := make([]model.MatchRecord, 0, len(pending))
	for _, sm := range pending {
		records = append(records, sm.Record)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})

	accepted := records[:0]
	for _, m := range records {
		if err := m.Validate(); err != nil {
			report.SkippedMalformed++
			metrics.RecordMatchSkipped("malformed")
			b.log.Debug(ctx, "skipping match", logger.String("match_id", m.ID), logger.Error(err))
			continue
		}
		if known != nil {
			if err := checkKnown(m, known); err != nil {
				report.SkippedUnknown++
				metrics.RecordMatchSkipped("unknown_entity")
				b.log.Debug(ctx, "skipping match", logger.String("match_id", m.ID), logger.Error(err))
				continue
			}
		}
		if !m.Result.ProducesEdge() {
			report.SkippedNoContest++
		}
		accepted = append(accepted, m)
	}

	for lo := 0; lo < len(accepted); lo += b.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		hi := lo + b.batchSize
		if hi > len(accepted) {
			hi = len(accepted)
		}
		chunk := accepted[lo:hi]
		batch := model.Batch{
			WeightClass: class,
			MatchIDs:    make([]string, len(chunk)),
			Deltas:      Accumulate(chunk, b.weights),
		}
		for i, m := range chunk {
			batch.MatchIDs[i] = m.ID
		}

		if err := b.store.CommitBatch(ctx, batch); err != nil {
			report.FailedBatches++
			metrics.RecordBatchFailed()
			metrics.RecordErrorByComponent("graph", "batch_commit")
			b.log.Warn(ctx, "batch rolled back",
				logger.String("weight_class", class),
				logger.Int("matches", len(chunk)),
				logger.Error(err))
			continue
		}
		report.Batches++
		report.Processed += len(chunk)
		metrics.RecordBatchCommitted()
		metrics.RecordMatchesProcessed(class, len(chunk))
	}
	return nil
}

// rosterSet returns the expected entity ids of class, or nil when the store
// has no roster for it (every entity is then accepted).
func (b *Builder) rosterSet(ctx context.Context, class string) (map[string]struct{}, error) {
	roster, err := b.store.Roster(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", class, err)
	}
	if len(roster) == 0 {
		return nil, nil
	}
	set := make(map[string]struct{}, len(roster))
	for _, e := range roster {
		set[e.ID] = struct{}{}
	}
	return set, nil
}

func checkKnown(m model.MatchRecord, known map[string]struct{}) error {
	for _, id := range []string{m.EntityA, m.EntityB} {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %s in match %s", model.ErrUnknownEntity, id, m.ID)
		}
	}
	return nil
}

// Reconcile compares the committed tallies of class with the tallies implied
// by its Processed matches. On mismatch the processed flags are taken as the
// truth and the tallies are rewritten. It reports whether a repair ran.
func (b *Builder) Reconcile(ctx context.Context, class string) (bool, error) {
	processed := model.StatusProcessed
	done, err := b.store.Matches(ctx, []string{class}, &processed)
	if err != nil {
		return false, fmt.Errorf("load processed matches for %s: %w", class, err)
	}
	records := make([]model.MatchRecord, 0, len(done))
	for _, sm := range done {
		records = append(records, sm.Record)
	}
	want := Accumulate(records, b.weights)

	have, err := b.store.Tallies(ctx, []string{class})
	if err != nil {
		return false, fmt.Errorf("load tallies for %s: %w", class, err)
	}
	if sameTallies(want, have) {
		return false, nil
	}

	inconsistent := fmt.Errorf("%w: weight class %s", ErrInconsistentGraphState, class)
	b.log.Warn(ctx, "repairing relationship tallies",
		logger.String("weight_class", class),
		logger.Int("expected_pairs", len(want)),
		logger.Int("stored_pairs", len(have)),
		logger.Error(inconsistent))
	metrics.RecordGraphRepair(class)

	if err := b.store.ReplaceTallies(ctx, class, want); err != nil {
		return false, errors.Join(inconsistent, fmt.Errorf("repair: %w", err))
	}
	return true, nil
}

func sameTallies(want, have []model.Tally) bool {
	idx := make(map[model.TallyKey]model.Tally, len(want))
	for _, t := range want {
		idx[t.Key()] = t
	}
	n := 0
	for _, t := range have {
		if t.Count == 0 {
			continue
		}
		n++
		w, ok := idx[t.Key()]
		if !ok || w.Count != t.Count || w.InferCount != t.InferCount || math.Abs(w.Weight-t.Weight) > 1e-9 {
			return false
		}
	}
	return n == len(want)
}

// Materialize reads committed tallies and returns the graph of class.
func (b *Builder) Materialize(ctx context.Context, class string, includeAdjacent bool) (*Graph, error) {
	if b.store == nil {
		return nil, ErrNoStore
	}
	classes := []string{class}
	if includeAdjacent {
		classes = weightclass.WithAdjacent(class)
	}
	tallies, err := b.store.Tallies(ctx, classes)
	if err != nil {
		return nil, fmt.Errorf("load tallies for %v: %w", classes, err)
	}
	roster, err := b.store.Roster(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", class, err)
	}
	ids := make([]string, len(roster))
	for i, e := range roster {
		ids[i] = e.ID
	}

	g := FromTallies(class, tallies, ids, b.coWeight)
	metrics.UpdateGraphEdges(class, Direct.String(), g.EdgeCount(Direct))
	metrics.UpdateGraphEdges(class, CommonOpponent.String(), g.EdgeCount(CommonOpponent))
	return g, nil
}
