package optimizer

import (
	"context"
	"math"
	"math/rand"
)

const ctxCheckEvery = 4096

// Annealing start kinds.
const (
	StartGreedyFAS = "greedy_fas"
	StartPageRank  = "pagerank"
	StartRandom    = "random"
)

// AnnealRun reports one annealing restart.
type AnnealRun struct {
	Index      int     `json:"index"`
	Start      string  `json:"start"`
	Seed       int64   `json:"seed"`
	StartCost  float64 `json:"start_cost"`
	Cost       float64 `json:"cost"`
	Iterations int     `json:"iterations"`
	Uphill     int     `json:"uphill"`

	order []int
}

// anneal refines start with random swaps and returns the best order seen,
// which is never worse than start.
func (o *Optimizer) anneal(ctx context.Context, p *problem, start []int, rng *rand.Rand) ([]int, int, int, error) {
	n := len(start)
	cur := append([]int(nil), start...)
	best := append([]int(nil), start...)
	if n < 2 {
		return best, 0, 0, nil
	}
	curCost := p.cost(cur)
	bestCost := curCost

	temp := o.t0
	iter, uphill := 0, 0
	for iter < o.saMaxIter && temp > o.tMin {
		if iter%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return best, iter, uphill, err
			}
		}
		i := rng.Intn(n)
		j := o.partner(rng, i, n)
		if i != j {
			delta := p.swapDelta(cur, i, j)
			if delta < 0 || rng.Float64() < math.Exp(-delta/temp) {
				cur[i], cur[j] = cur[j], cur[i]
				curCost += delta
				if delta > eps {
					uphill++
				}
				if curCost < bestCost-eps {
					bestCost = curCost
					copy(best, cur)
				}
			}
		}
		temp *= o.cooling
		iter++
	}
	return best, iter, uphill, nil
}

// partner picks the second swap position, inside the window when one is set.
func (o *Optimizer) partner(rng *rand.Rand, i, n int) int {
	if o.window <= 0 || o.window >= n {
		return rng.Intn(n)
	}
	j := i + rng.Intn(2*o.window+1) - o.window
	switch {
	case j < 0:
		return 0
	case j >= n:
		return n - 1
	}
	return j
}
