package optimizer

import (
	"github.com/okian/wrestlerank/pkg/logger"
)

// Default tuning.
const (
	DefaultDamping              = 0.85
	DefaultTolerance            = 1e-6
	DefaultPageRankIterations   = 100
	DefaultInitialTemperature   = 10.0
	DefaultCoolingRate          = 0.9999
	DefaultMinTemperature       = 0.01
	DefaultAnnealIterations     = 100000
	DefaultRestarts             = 4
	DefaultLocalSearchMaxPasses = 10000
	DefaultSeed                 = 42
)

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithPageRank sets damping, L1 tolerance and the iteration cap.
func WithPageRank(damping, tolerance float64, maxIter int) Option {
	return func(o *Optimizer) {
		if damping > 0 && damping < 1 {
			o.damping = damping
		}
		if tolerance > 0 {
			o.tolerance = tolerance
		}
		if maxIter > 0 {
			o.prMaxIter = maxIter
		}
	}
}

// WithAnnealing sets the temperature schedule and iteration budget.
func WithAnnealing(initial, cooling, floor float64, maxIter int) Option {
	return func(o *Optimizer) {
		if initial > 0 {
			o.t0 = initial
		}
		if cooling > 0 && cooling < 1 {
			o.cooling = cooling
		}
		if floor > 0 {
			o.tMin = floor
		}
		if maxIter >= 0 {
			o.saMaxIter = maxIter
		}
	}
}

// WithRestarts sets how many annealing runs execute in parallel.
func WithRestarts(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.restarts = n
		}
	}
}

// WithWindow limits annealing swaps to positions at most w apart. Zero
// allows any pair.
func WithWindow(w int) Option {
	return func(o *Optimizer) {
		if w >= 0 {
			o.window = w
		}
	}
}

// WithLocalSearch caps adjacent-swap passes and toggles the all-pairs
// polish that runs after them.
func WithLocalSearch(maxPasses int, pairwise bool) Option {
	return func(o *Optimizer) {
		if maxPasses > 0 {
			o.lsMaxPasses = maxPasses
		}
		o.pairwise = pairwise
	}
}

// WithSeed fixes the pseudo-random seed.
func WithSeed(seed int64) Option {
	return func(o *Optimizer) {
		o.seed = seed
	}
}

// WithWeightClass labels metrics and logs.
func WithWeightClass(class string) Option {
	return func(o *Optimizer) {
		o.class = class
	}
}

// WithLogger sets the optimizer logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}
