package graph

import (
	"sort"

	"github.com/okian/wrestlerank/internal/domain/model"
)

// Accumulate folds valid matches into per-pair tallies ordered by key.
// Records that fail validation or produce no edge are ignored; callers that
// need skip counts validate first.
func Accumulate(matches []model.MatchRecord, weights ResultWeights) []model.Tally {
	acc := make(map[model.TallyKey]*model.Tally)
	for _, m := range matches {
		if m.Validate() != nil || !m.Result.ProducesEdge() {
			continue
		}
		t := model.Tally{WeightClass: m.WeightClass, Loser: m.Loser(), Winner: m.Winner}
		k := t.Key()
		cur, ok := acc[k]
		if !ok {
			cur = &t
			acc[k] = cur
		}
		cur.Count++
		if m.Result.CountsForInference() {
			cur.InferCount++
		}
		cur.Weight += weights.For(m.Result)
	}

	out := make([]model.Tally, 0, len(acc))
	for _, t := range acc {
		out = append(out, *t)
	}
	sortTallies(out)
	return out
}

func sortTallies(ts []model.Tally) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if a.WeightClass != b.WeightClass {
			return a.WeightClass < b.WeightClass
		}
		if a.Loser != b.Loser {
			return a.Loser < b.Loser
		}
		return a.Winner < b.Winner
	})
}

// FromTallies materializes the graph for class from committed tallies.
// Tallies of other classes (adjacent ones) join the inference pass; their
// entities are tagged with their own class and dropped by the final
// restriction unless they also wrestled in class. An empty class keeps
// every node.
func FromTallies(class string, tallies []model.Tally, roster []string, coWeight float64) *Graph {
	g := New(class)
	for _, id := range roster {
		g.AddNode(id, class)
	}

	sorted := append([]model.Tally(nil), tallies...)
	sortTallies(sorted)
	for _, t := range sorted {
		if t.Count <= 0 || t.Loser == t.Winner {
			continue
		}
		g.AddNode(t.Loser, t.WeightClass)
		g.AddNode(t.Winner, t.WeightClass)
		g.addEdge(Edge{
			Loser:        t.Loser,
			Winner:       t.Winner,
			WeightClass:  t.WeightClass,
			Kind:         Direct,
			Support:      t.Count,
			InferSupport: t.InferCount,
			Weight:       t.Weight,
		})
	}

	inferCommonOpponents(g, coWeight)

	if class == "" {
		return g
	}
	return g.Restrict(class)
}

type pair struct{ a, b string }

// inferCommonOpponents adds CommonOpponent edges for pairs that never met.
// For each shared opponent X, a wrestler with a winning record against X
// signals over one with a losing record against X. A split record against X
// makes X neutral for that wrestler. An edge appears only when one direction
// holds the majority of signals.
func inferCommonOpponents(g *Graph, coWeight float64) {
	if coWeight <= 0 {
		return
	}

	// net[x][n] > 0 means n holds a winning record against x.
	net := make(map[string]map[string]int)
	bump := func(x, n string, d int) {
		m, ok := net[x]
		if !ok {
			m = make(map[string]int)
			net[x] = m
		}
		m[n] += d
	}
	for _, e := range g.Edges() {
		if e.Kind != Direct || e.InferSupport == 0 {
			continue
		}
		bump(e.Loser, e.Winner, e.InferSupport)
		bump(e.Winner, e.Loser, -e.InferSupport)
	}

	eligible := func(id string) bool {
		if g.WeightClass == "" {
			return true
		}
		n, _ := g.Node(id)
		return n.Origin == g.WeightClass
	}

	signals := make(map[pair]int)
	via := make(map[pair][]string)
	opponents := make([]string, 0, len(net))
	for x := range net {
		opponents = append(opponents, x)
	}
	sort.Strings(opponents)

	for _, x := range opponents {
		var above, below []string
		for n, v := range net[x] {
			if !eligible(n) {
				continue
			}
			switch {
			case v > 0:
				above = append(above, n)
			case v < 0:
				below = append(below, n)
			}
		}
		sort.Strings(above)
		sort.Strings(below)
		for _, a := range above {
			for _, b := range below {
				if a == b || g.HasDirect(a, b) {
					continue
				}
				p := pair{a: a, b: b}
				signals[p]++
				via[p] = append(via[p], x)
			}
		}
	}

	seen := make(map[pair]bool)
	keys := make([]pair, 0, len(signals))
	for p := range signals {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})

	for _, p := range keys {
		lo, hi := p.a, p.b
		if hi < lo {
			lo, hi = hi, lo
		}
		canon := pair{a: lo, b: hi}
		if seen[canon] {
			continue
		}
		seen[canon] = true

		loOver := signals[pair{a: lo, b: hi}]
		hiOver := signals[pair{a: hi, b: lo}]
		switch {
		case loOver > hiOver:
			g.addEdge(coEdge(g.WeightClass, hi, lo, loOver, hiOver, coWeight, via[pair{a: lo, b: hi}]))
		case hiOver > loOver:
			g.addEdge(coEdge(g.WeightClass, lo, hi, hiOver, loOver, coWeight, via[pair{a: hi, b: lo}]))
		}
	}
}

func coEdge(class, loser, winner string, support, against int, coWeight float64, via []string) Edge {
	return Edge{
		Loser:       loser,
		Winner:      winner,
		WeightClass: class,
		Kind:        CommonOpponent,
		Support:     support,
		Against:     against,
		Weight:      coWeight * float64(support-against),
		Via:         via,
	}
}

// FromMatches is the pure in-memory build: validate, tally and infer in one
// pass without touching any store.
func FromMatches(class string, matches []model.MatchRecord, opts ...Option) (*Graph, Report) {
	b := NewBuilder(nil, opts...)
	report := Report{Mode: Full}

	var valid []model.MatchRecord
	for _, m := range matches {
		if err := m.Validate(); err != nil {
			report.SkippedMalformed++
			continue
		}
		if !m.Result.ProducesEdge() {
			report.SkippedNoContest++
			continue
		}
		valid = append(valid, m)
		report.Processed++
	}

	g := FromTallies(class, Accumulate(valid, b.weights), nil, b.coWeight)
	return g, report
}
