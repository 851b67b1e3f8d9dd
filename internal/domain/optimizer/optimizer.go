// Package optimizer orders the entities of a weight class so that as few
// results as possible point upward. Stages run in sequence, each starting
// from the previous order: PageRank seed, greedy feedback arc set,
// simulated annealing restarts and a local search polish. Minimum feedback
// arc set is NP-hard, so the result is heuristic but deterministic for a
// fixed seed.
package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/pkg/logger"
	"github.com/okian/wrestlerank/pkg/metrics"
)

// Stage names.
const (
	StageSeed        = "pagerank"
	StageGreedyFAS   = "greedy_fas"
	StageAnnealing   = "annealing"
	StageLocalSearch = "local_search"
)

// StageReport is the order cost after a stage.
type StageReport struct {
	Stage    string        `json:"stage"`
	Cost     float64       `json:"cost"`
	Duration time.Duration `json:"duration"`
}

// Result is the outcome of one optimizer run.
type Result struct {
	Order    []string      `json:"order"`
	Cost     float64       `json:"cost"`
	Seed     int64         `json:"seed"`
	Stages   []StageReport `json:"stages"`
	Runs     []AnnealRun   `json:"runs"`
	Isolated []string      `json:"isolated,omitempty"`

	PageRankIterations int  `json:"pagerank_iterations"`
	Converged          bool `json:"converged"`
	// Warning wraps ErrNonConvergence when the seed stage hit its cap.
	Warning error `json:"-"`
}

// SeedCost returns the cost of the PageRank order.
func (r Result) SeedCost() float64 {
	if len(r.Stages) == 0 {
		return 0
	}
	return r.Stages[0].Cost
}

// Optimizer runs the ranking pipeline. It keeps no state between runs.
type Optimizer struct {
	damping     float64
	tolerance   float64
	prMaxIter   int
	t0          float64
	cooling     float64
	tMin        float64
	saMaxIter   int
	restarts    int
	window      int
	lsMaxPasses int
	pairwise    bool
	seed        int64
	class       string
	log         logger.Logger
}

// New creates an optimizer with the default schedule.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		damping:     DefaultDamping,
		tolerance:   DefaultTolerance,
		prMaxIter:   DefaultPageRankIterations,
		t0:          DefaultInitialTemperature,
		cooling:     DefaultCoolingRate,
		tMin:        DefaultMinTemperature,
		saMaxIter:   DefaultAnnealIterations,
		restarts:    DefaultRestarts,
		lsMaxPasses: DefaultLocalSearchMaxPasses,
		seed:        DefaultSeed,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize returns a permutation of entities. Duplicate ids are collapsed.
// Entities without any edge to another entity of the set keep their input
// order and are appended after the optimized part.
func (o *Optimizer) Optimize(ctx context.Context, g *graph.Graph, entities []string) (Result, error) {
	if g == nil {
		return Result{}, ErrNilGraph
	}
	res := Result{Seed: o.seed, Converged: true, Order: []string{}}
	p, isolated := split(g, entities)
	res.Isolated = isolated

	// Seed.
	start := time.Now()
	order, iters, converged := p.pagerank(o.damping, o.tolerance, o.prMaxIter)
	res.PageRankIterations, res.Converged = iters, converged
	if !converged {
		res.Warning = fmt.Errorf("%w: %d iterations for %s", ErrNonConvergence, iters, o.class)
		metrics.RecordPageRankNonConvergence()
		o.log.Warn(ctx, "pagerank seed did not converge",
			logger.String("weight_class", o.class),
			logger.Int("iterations", iters),
			logger.Error(res.Warning))
	}
	prOrder := append([]int(nil), order...)
	o.stage(ctx, &res, StageSeed, p.cost(order), start)

	// Greedy FAS, kept only when it does not lose ground.
	start = time.Now()
	fas := p.greedyFAS(order)
	fasCost := p.cost(fas)
	if fasCost <= res.SeedCost()+eps {
		order = fas
	} else {
		fasCost = res.SeedCost()
		fas = append([]int(nil), order...)
	}
	o.stage(ctx, &res, StageGreedyFAS, fasCost, start)
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	// Annealing restarts.
	start = time.Now()
	runs, err := o.restartAll(ctx, p, fas, prOrder)
	if err != nil {
		return Result{}, err
	}
	res.Runs = runs
	bestRun := runs[0]
	for _, r := range runs[1:] {
		if r.Cost < bestRun.Cost-eps {
			bestRun = r
		}
	}
	annealCost := fasCost
	if bestRun.Cost <= fasCost+eps {
		order, annealCost = bestRun.order, bestRun.Cost
	}
	o.stage(ctx, &res, StageAnnealing, annealCost, start)

	// Local search.
	start = time.Now()
	order = append([]int(nil), order...)
	passes := p.adjacentPasses(order, o.lsMaxPasses)
	if o.pairwise {
		passes += p.pairwisePolish(order, o.lsMaxPasses)
	}
	res.Cost = p.cost(order)
	o.stage(ctx, &res, StageLocalSearch, res.Cost, start)

	res.Order = append(p.names(order), isolated...)
	o.log.Info(ctx, "ranking optimized",
		logger.String("weight_class", o.class),
		logger.Int("entities", len(res.Order)),
		logger.Int("isolated", len(isolated)),
		logger.Float64("seed_cost", res.SeedCost()),
		logger.Float64("final_cost", res.Cost),
		logger.Int("local_passes", passes),
		logger.Int64("seed", o.seed))
	return res, nil
}

func (o *Optimizer) stage(ctx context.Context, res *Result, name string, cost float64, start time.Time) {
	d := time.Since(start)
	res.Stages = append(res.Stages, StageReport{Stage: name, Cost: cost, Duration: d})
	metrics.UpdateStageCost(o.class, name, cost)
	metrics.RecordStageDuration(name, float64(d.Milliseconds()))
	o.log.Debug(ctx, "optimizer stage done",
		logger.String("weight_class", o.class),
		logger.String("stage", name),
		logger.Float64("cost", cost),
		logger.Duration("took", d))
}

// restartAll runs the annealing restarts in parallel. Run r uses seed+r and
// starts from the greedy order (r=0), the PageRank order (r=1) or a random
// permutation drawn from its own generator.
func (o *Optimizer) restartAll(ctx context.Context, p *problem, fas, pr []int) ([]AnnealRun, error) {
	runs := make([]AnnealRun, o.restarts)
	errs := make([]error, o.restarts)

	var wg sync.WaitGroup
	for r := 0; r < o.restarts; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			seed := o.seed + int64(r)
			rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic seed
			run := AnnealRun{Index: r, Seed: seed}

			var start []int
			switch r {
			case 0:
				run.Start, start = StartGreedyFAS, fas
			case 1:
				run.Start, start = StartPageRank, pr
			default:
				run.Start, start = StartRandom, rng.Perm(p.size())
			}
			run.StartCost = p.cost(start)

			order, iters, uphill, err := o.anneal(ctx, p, start, rng)
			run.order, run.Iterations, run.Uphill = order, iters, uphill
			run.Cost = p.cost(order)
			runs[r], errs[r] = run, err
		}(r)
	}
	wg.Wait()

	total := 0
	for r, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("annealing run %d: %w", r, err)
		}
		total += runs[r].Uphill
	}
	metrics.RecordAnnealUphillAccepts(total)
	return runs, nil
}
