package optimizer

// greedyFAS is the Eades-Lin-Smyth heuristic in ranking terms. Entities no
// remaining entity has beaten go to the front, entities that beat nobody
// remaining go to the back, otherwise the entity with the largest
// wins-minus-losses margin goes to the front. Ties follow the seed order,
// which keeps the result deterministic.
func (p *problem) greedyFAS(seed []int) []int {
	n := p.size()

	wins := make([]float64, n)
	losses := make([]float64, n)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			wins[a] += p.beat[a][b]
			losses[b] += p.beat[a][b]
		}
	}

	removed := make([]bool, n)
	front := make([]int, 0, n)
	back := make([]int, 0, n)
	remove := func(v int) {
		removed[v] = true
		for u := 0; u < n; u++ {
			if removed[u] {
				continue
			}
			wins[u] -= p.beat[u][v]
			losses[u] -= p.beat[v][u]
		}
	}

	// pick returns the remaining entity earliest in the seed order that
	// satisfies ok.
	pick := func(ok func(int) bool) int {
		best := -1
		for _, v := range seed {
			if !removed[v] && ok(v) {
				best = v
				break
			}
		}
		return best
	}

	for left := n; left > 0; {
		if v := pick(func(v int) bool { return wins[v] <= eps }); v >= 0 {
			back = append(back, v)
			remove(v)
			left--
			continue
		}
		if v := pick(func(v int) bool { return losses[v] <= eps }); v >= 0 {
			front = append(front, v)
			remove(v)
			left--
			continue
		}
		best, margin := -1, 0.0
		for _, v := range seed {
			if removed[v] {
				continue
			}
			if m := wins[v] - losses[v]; best < 0 || m > margin+eps {
				best, margin = v, m
			}
		}
		front = append(front, best)
		remove(best)
		left--
	}

	out := front
	for i := len(back) - 1; i >= 0; i-- {
		out = append(out, back[i])
	}
	return out
}
