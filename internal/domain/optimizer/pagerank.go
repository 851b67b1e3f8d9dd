package optimizer

import (
	"math"
	"sort"
)

// pagerank runs power iteration with loser -> winner flow: every loss hands
// a share of the loser's authority to the winner. It returns the order by
// descending score (ties by id), the iteration count and whether the L1
// delta dropped below tol.
func (p *problem) pagerank(damping, tol float64, maxIter int) ([]int, int, bool) {
	v, iter, converged := p.pagerankScores(damping, tol, maxIter)

	order := make([]int, len(v))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		va, vb := v[order[a]], v[order[b]]
		if va != vb {
			return va > vb
		}
		return p.ids[order[a]] < p.ids[order[b]]
	})
	return order, iter, converged
}

// pagerankScores is the stationary vector. Unbeaten wrestlers have nowhere
// to send authority, so their mass is spread evenly over every node and
// the vector keeps summing to one.
func (p *problem) pagerankScores(damping, tol float64, maxIter int) ([]float64, int, bool) {
	n := p.size()
	if n == 0 {
		return nil, 0, true
	}

	losses := make([]float64, n)
	for w := 0; w < n; w++ {
		for l := 0; l < n; l++ {
			losses[l] += p.beat[w][l]
		}
	}

	v := make([]float64, n)
	next := make([]float64, n)
	for i := range v {
		v[i] = 1 / float64(n)
	}

	converged := false
	iter := 0
	for iter < maxIter {
		iter++
		dangling := 0.0
		for l := 0; l < n; l++ {
			if losses[l] == 0 {
				dangling += v[l]
			}
		}
		base := (1-damping)/float64(n) + damping*dangling/float64(n)

		delta := 0.0
		for w := 0; w < n; w++ {
			s := 0.0
			for l := 0; l < n; l++ {
				if b := p.beat[w][l]; b != 0 {
					s += b / losses[l] * v[l]
				}
			}
			next[w] = damping*s + base
			delta += math.Abs(next[w] - v[w])
		}
		v, next = next, v
		if delta < tol {
			converged = true
			break
		}
	}
	return v, iter, converged
}
