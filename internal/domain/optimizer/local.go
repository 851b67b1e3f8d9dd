package optimizer

// adjacentPasses bubbles neighbours whose head-to-head favours the lower
// one, repeating until a pass changes nothing or maxPasses is reached.
func (p *problem) adjacentPasses(order []int, maxPasses int) int {
	passes := 0
	for passes < maxPasses {
		passes++
		improved := false
		for i := 0; i+1 < len(order); i++ {
			x, y := order[i], order[i+1]
			if p.beat[x][y]-p.beat[y][x] < -eps {
				order[i], order[i+1] = y, x
				improved = true
			}
		}
		if !improved {
			break
		}
	}
	return passes
}

// pairwisePolish applies the first improving swap among all pairs until
// none is left or maxPasses is reached.
func (p *problem) pairwisePolish(order []int, maxPasses int) int {
	passes := 0
	for passes < maxPasses {
		passes++
		if !p.improveOnce(order) {
			break
		}
	}
	return passes
}

func (p *problem) improveOnce(order []int) bool {
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if p.swapDelta(order, i, j) < -eps {
				order[i], order[j] = order[j], order[i]
				return true
			}
		}
	}
	return false
}
