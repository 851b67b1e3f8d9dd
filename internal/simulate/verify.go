package simulate

import (
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/optimizer"
)

// ClassReport compares a recovered order with the hidden one.
type ClassReport struct {
	WeightClass string  `json:"weight_class"`
	Entities    int     `json:"entities"`
	Kendall     int     `json:"kendall"`
	KendallNorm float64 `json:"kendall_norm"`
	HiddenCost  float64 `json:"hidden_cost"`
	RankedCost  float64 `json:"ranked_cost"`
	Anomalies   int     `json:"anomalies"`
}

// KendallDistance counts pairs ordered differently by a and b. Ids present
// in only one of them are ignored.
func KendallDistance(a, b []string) int {
	pos := make(map[string]int, len(b))
	for i, id := range b {
		pos[id] = i
	}
	seq := make([]int, 0, len(a))
	for _, id := range a {
		if p, ok := pos[id]; ok {
			seq = append(seq, p)
		}
	}
	d := 0
	for i := 0; i < len(seq); i++ {
		for j := i + 1; j < len(seq); j++ {
			if seq[i] > seq[j] {
				d++
			}
		}
	}
	return d
}

// Verify scores ranked against hidden on g.
func Verify(g *graph.Graph, hidden, ranked []string) ClassReport {
	r := ClassReport{
		WeightClass: g.WeightClass,
		Entities:    len(ranked),
		Kendall:     KendallDistance(hidden, ranked),
		HiddenCost:  optimizer.Cost(g, hidden),
		RankedCost:  optimizer.Cost(g, ranked),
		Anomalies:   g.Matrix(ranked).Anomalies(),
	}
	if n := len(hidden); n > 1 {
		r.KendallNorm = float64(r.Kendall) / float64(n*(n-1)/2)
	}
	return r
}
