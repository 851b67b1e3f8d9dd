package optimizer

import (
	"github.com/okian/wrestlerank/internal/domain/graph"
)

const eps = 1e-12

// problem is the dense form of a graph restricted to the connected part of
// the entity set. beat[a][b] is the total weight of a's results over b.
type problem struct {
	ids  []string
	beat [][]float64
}

// split indexes entities (deduplicated, input order kept) and separates
// those without any edge to another entity of the set.
func split(g *graph.Graph, entities []string) (*problem, []string) {
	seen := make(map[string]struct{}, len(entities))
	uniq := make([]string, 0, len(entities))
	for _, id := range entities {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	linked := make(map[string]bool, len(uniq))
	edges := g.Edges()
	for _, e := range edges {
		_, lok := seen[e.Loser]
		_, wok := seen[e.Winner]
		if lok && wok && e.Weight > 0 {
			linked[e.Loser] = true
			linked[e.Winner] = true
		}
	}

	p := &problem{}
	var isolated []string
	idx := make(map[string]int, len(uniq))
	for _, id := range uniq {
		if !linked[id] {
			isolated = append(isolated, id)
			continue
		}
		idx[id] = len(p.ids)
		p.ids = append(p.ids, id)
	}
	p.beat = make([][]float64, len(p.ids))
	for i := range p.beat {
		p.beat[i] = make([]float64, len(p.ids))
	}
	for _, e := range edges {
		w, wok := idx[e.Winner]
		l, lok := idx[e.Loser]
		if wok && lok && e.Weight > 0 {
			p.beat[w][l] += e.Weight
		}
	}
	return p, isolated
}

func (p *problem) size() int { return len(p.ids) }

// cost sums the weight of every result whose winner sits below its loser.
func (p *problem) cost(order []int) float64 {
	var c float64
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			c += p.beat[order[j]][order[i]]
		}
	}
	return c
}

// swapDelta is the cost change of exchanging positions i and j. Only pairs
// touching the two positions and the elements between them change.
func (p *problem) swapDelta(order []int, i, j int) float64 {
	if i == j {
		return 0
	}
	if i > j {
		i, j = j, i
	}
	x, y := order[i], order[j]
	d := p.beat[x][y] - p.beat[y][x]
	for k := i + 1; k < j; k++ {
		m := order[k]
		d += p.beat[x][m] - p.beat[m][x] + p.beat[m][y] - p.beat[y][m]
	}
	return d
}

func (p *problem) names(order []int) []string {
	out := make([]string, len(order))
	for i, v := range order {
		out[i] = p.ids[v]
	}
	return out
}

// Cost is the anomaly cost of order against g: the summed weight of edges
// whose loser is ordered ahead of its winner. Entities missing from order
// are ignored.
func Cost(g *graph.Graph, order []string) float64 {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		if _, ok := pos[id]; !ok {
			pos[id] = i
		}
	}
	var c float64
	for _, e := range g.Edges() {
		l, lok := pos[e.Loser]
		w, wok := pos[e.Winner]
		if lok && wok && l < w {
			c += e.Weight
		}
	}
	return c
}
