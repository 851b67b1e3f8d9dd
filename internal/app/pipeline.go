package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/okian/wrestlerank/internal/adapters/importer"
	"github.com/okian/wrestlerank/internal/adapters/lock"
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/okian/wrestlerank/pkg/metrics"
)

// ImportSummary counts what an import added to the store.
type ImportSummary struct {
	Entities int `json:"entities"`
	Matches  int `json:"matches"`
	New      int `json:"new"`
	Rankings int `json:"rankings"`
}

// Import stores the entities, matches and manual rankings of a parsed
// season. Matches already stored are left as they are.
func (s *Service) Import(ctx context.Context, res importer.Result) (ImportSummary, error) {
	sum := ImportSummary{Entities: len(res.Entities), Matches: len(res.Matches)}
	if err := s.store.UpsertEntities(ctx, res.Entities); err != nil {
		return sum, fmt.Errorf("store entities: %w", err)
	}
	n, err := s.store.UpsertMatches(ctx, res.Matches)
	if err != nil {
		return sum, fmt.Errorf("store matches: %w", err)
	}
	sum.New = n
	for _, r := range res.Rankings {
		if err := s.store.SaveRanking(ctx, r); err != nil {
			return sum, fmt.Errorf("store ranking for %s: %w", r.WeightClass, err)
		}
		sum.Rankings++
	}
	s.logger.Info(ctx, "season imported",
		logger.Int("entities", sum.Entities),
		logger.Int("matches", sum.Matches),
		logger.Int("new_matches", sum.New),
		logger.Int("rankings", sum.Rankings),
		logger.Int("malformed", res.Malformed))
	return sum, nil
}

// BuildRelationships folds stored matches into relationship graphs while
// holding the lock of every class the build reads.
func (s *Service) BuildRelationships(ctx context.Context, req graph.Request) (*graph.Result, error) {
	req.IncludeAdjacent = req.IncludeAdjacent || s.includeAdjacent
	targets, ingest, err := s.builder.Scope(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("build relationships: %w", ErrEmptyInput)
	}

	var res *graph.Result
	err = lock.WithLock(ctx, s.locker, ingest, func(ctx context.Context) error {
		var berr error
		res, berr = s.builder.Build(ctx, req)
		return berr
	})
	if err != nil {
		metrics.RecordErrorByComponent("builder", "build")
		return nil, fmt.Errorf("build relationships for %v: %w", targets, err)
	}
	return res, nil
}

// ComputePowerScores scores every entity of class against a fixed rank
// snapshot. A nil mods uses the configured modifiers. The scores feed the
// class leaderboard and the stored entities.
func (s *Service) ComputePowerScores(ctx context.Context, class string, mods *powerscore.Modifiers) (map[string]model.ScoreBreakdown, error) {
	class = weightclass.Normalize(class)
	engine := s.scorer
	if mods != nil {
		if err := mods.Validate(); err != nil {
			return nil, err
		}
		opts := append(append([]powerscore.Option{}, s.scoreOpts...), powerscore.WithModifiers(*mods))
		engine = powerscore.New(opts...)
	}

	roster, err := s.store.Roster(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", class, err)
	}
	stored, err := s.store.Matches(ctx, []string{class}, nil)
	if err != nil {
		return nil, fmt.Errorf("load matches for %s: %w", class, err)
	}
	if len(roster) == 0 && len(stored) == 0 {
		return nil, fmt.Errorf("score %s: %w", class, ErrEmptyInput)
	}
	ranks, err := s.ranksFor(ctx, class)
	if err != nil {
		return nil, err
	}

	matches := make([]model.MatchRecord, len(stored))
	for i, m := range stored {
		matches[i] = m.Record
	}
	ids := scoreTargets(roster, ranks)

	out, err := engine.Compute(ctx, class, ids, matches, ranks)
	if err != nil {
		return nil, err
	}

	board := s.board(class)
	for _, id := range ids {
		if err := board.Upsert(ctx, id, out[id].Total); err != nil {
			return nil, err
		}
	}
	for i := range roster {
		roster[i].PowerScore = out[roster[i].ID].Total
	}
	if err := s.store.UpsertEntities(ctx, roster); err != nil {
		return nil, fmt.Errorf("store power scores for %s: %w", class, err)
	}
	s.logger.Info(ctx, "power scores computed",
		logger.String("weight_class", class),
		logger.Int("entities", len(ids)),
		logger.Int("ranked", len(ranks)))
	return out, nil
}

// scoreTargets is the roster followed by ranked ids missing from it.
func scoreTargets(roster []model.Entity, ranks map[string]int) []string {
	seen := make(map[string]struct{}, len(roster))
	ids := make([]string, 0, len(roster)+len(ranks))
	for _, e := range roster {
		seen[e.ID] = struct{}{}
		ids = append(ids, e.ID)
	}
	var extra []string
	for id := range ranks {
		if _, ok := seen[id]; !ok {
			extra = append(extra, id)
		}
	}
	sort.Slice(extra, func(i, j int) bool {
		if ranks[extra[i]] != ranks[extra[j]] {
			return ranks[extra[i]] < ranks[extra[j]]
		}
		return extra[i] < extra[j]
	})
	return append(ids, extra...)
}

// Optimization is a published ranking with the run that produced it.
type Optimization struct {
	Ranking model.RankingResult
	Run     optimizer.Result
}

// OptimizeRanking orders class from its committed graph and publishes the
// result. A nil seed uses the configured one.
func (s *Service) OptimizeRanking(ctx context.Context, class string, seed *int64) (Optimization, error) {
	class = weightclass.Normalize(class)
	sd := s.seed
	if seed != nil {
		sd = *seed
	}

	var out Optimization
	err := lock.WithLock(ctx, s.locker, []string{class}, func(ctx context.Context) error {
		g, err := s.builder.Materialize(ctx, class, s.includeAdjacent)
		if err != nil {
			return err
		}
		entities, err := s.candidates(ctx, class, g)
		if err != nil {
			return err
		}
		if len(entities) == 0 {
			return fmt.Errorf("optimize %s: %w", class, ErrEmptyInput)
		}

		opts := append(append([]optimizer.Option{}, s.optOpts...),
			optimizer.WithSeed(sd),
			optimizer.WithWeightClass(class),
			optimizer.WithLogger(s.logger.Named("optimizer")))
		run, err := optimizer.New(opts...).Optimize(ctx, g, entities)
		if err != nil {
			return err
		}

		ranking := model.RankingResult{
			RunID:       uuid.New(),
			WeightClass: class,
			Order:       run.Order,
			Generated:   s.now().UTC(),
			Algorithm:   model.AlgorithmOptimal,
			Cost:        run.Cost,
			Seed:        sd,
		}
		if err := s.store.SaveRanking(ctx, ranking); err != nil {
			return fmt.Errorf("publish ranking for %s: %w", class, err)
		}
		if err := s.applyRanks(ctx, class, run.Order); err != nil {
			return err
		}
		metrics.RecordRankingPublished()
		out = Optimization{Ranking: ranking, Run: run}
		return nil
	})
	if err != nil {
		return Optimization{}, err
	}
	if out.Run.Warning != nil {
		s.logger.Warn(ctx, "ranking published from a non-converged seed",
			logger.String("weight_class", class),
			logger.Error(out.Run.Warning))
	}
	s.logger.Info(ctx, "ranking published",
		logger.String("weight_class", class),
		logger.String("run_id", out.Ranking.RunID.String()),
		logger.String("tag", out.Ranking.Tag()),
		logger.Float64("cost", out.Ranking.Cost))
	return out, nil
}

// applyRanks writes the published order back onto the stored roster.
func (s *Service) applyRanks(ctx context.Context, class string, order []string) error {
	roster, err := s.store.Roster(ctx, class)
	if err != nil {
		return fmt.Errorf("load roster for %s: %w", class, err)
	}
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i + 1
	}
	for i := range roster {
		roster[i].Rank = pos[roster[i].ID]
	}
	if err := s.store.UpsertEntities(ctx, roster); err != nil {
		return fmt.Errorf("store ranks for %s: %w", class, err)
	}
	return nil
}

// candidates lists the entities to order: the previous ranking first, then
// the roster, then any graph node missing from both.
func (s *Service) candidates(ctx context.Context, class string, g *graph.Graph) ([]string, error) {
	var ids []string
	prev, err := s.store.LatestRanking(ctx, class)
	if err == nil {
		ids = append(ids, prev.Order...)
	}
	roster, err := s.store.Roster(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", class, err)
	}
	for _, e := range roster {
		ids = append(ids, e.ID)
	}
	ids = append(ids, g.NodeIDs()...)

	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// RunClass builds class incrementally, optimizes it and scores it against
// the new order.
func (s *Service) RunClass(ctx context.Context, class string, seed *int64) error {
	start := time.Now()
	if _, err := s.BuildRelationships(ctx, graph.Request{WeightClass: class, Mode: graph.Incremental}); err != nil {
		return err
	}
	if _, err := s.OptimizeRanking(ctx, class, seed); err != nil {
		return err
	}
	if _, err := s.ComputePowerScores(ctx, class, nil); err != nil {
		return err
	}
	s.logger.Debug(ctx, "class pipeline done",
		logger.String("weight_class", class),
		logger.Duration("took", time.Since(start)))
	return nil
}
