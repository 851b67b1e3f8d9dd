package graph

import (
	"strconv"
	"strings"
)

// Relation describes how a stands against b.
type Relation int

const (
	RelationNone Relation = iota
	RelationDirectWin
	RelationDirectLoss
	RelationSplit
	RelationCommonWin
	RelationCommonLoss
)

var relationCodes = [...]string{".", "W", "L", "S", "w", "l"} //nolint:gochecknoglobals

var relationNames = [...]string{"none", "direct_win", "direct_loss", "split", "common_win", "common_loss"} //nolint:gochecknoglobals

func (r Relation) String() string { return relationNames[r] }

// Code is the one-letter matrix symbol. Upper case is a direct result,
// lower case an inferred one.
func (r Relation) Code() string { return relationCodes[r] }

// Relation classifies the pair from a's point of view. Direct results take
// precedence over inferred ones.
func (g *Graph) Relation(a, b string) Relation {
	var wins, losses int
	if e, ok := g.Edge(b, a, Direct); ok {
		wins = e.Support
	}
	if e, ok := g.Edge(a, b, Direct); ok {
		losses = e.Support
	}
	switch {
	case wins > losses:
		return RelationDirectWin
	case losses > wins:
		return RelationDirectLoss
	case wins > 0:
		return RelationSplit
	}
	if _, ok := g.Edge(b, a, CommonOpponent); ok {
		return RelationCommonWin
	}
	if _, ok := g.Edge(a, b, CommonOpponent); ok {
		return RelationCommonLoss
	}
	return RelationNone
}

// Matrix is a head-to-head grid in a fixed order. Cells[i][j] is the
// relation of Order[i] against Order[j].
type Matrix struct {
	Order []string
	Cells [][]Relation
}

// Matrix builds the grid for order, typically a ranking.
func (g *Graph) Matrix(order []string) Matrix {
	m := Matrix{Order: append([]string(nil), order...), Cells: make([][]Relation, len(order))}
	for i, a := range order {
		m.Cells[i] = make([]Relation, len(order))
		for j, b := range order {
			if i != j {
				m.Cells[i][j] = g.Relation(a, b)
			}
		}
	}
	return m
}

// Anomalies counts cells below the diagonal that are wins, i.e. a lower
// ranked entity with a result over a higher ranked one.
func (m Matrix) Anomalies() int {
	n := 0
	for i := range m.Cells {
		for j := 0; j < i; j++ {
			switch m.Cells[i][j] {
			case RelationDirectWin, RelationCommonWin:
				n++
			}
		}
	}
	return n
}

// String renders the matrix as fixed-width text.
func (m Matrix) String() string {
	width := 4
	for _, id := range m.Order {
		if len(id) > width {
			width = len(id)
		}
	}
	pad := func(s string) string { return s + strings.Repeat(" ", width-len(s)+1) }

	var sb strings.Builder
	sb.WriteString(pad(""))
	for i := range m.Order {
		sb.WriteString(pad(strconv.Itoa(i + 1)))
	}
	sb.WriteByte('\n')
	for i, id := range m.Order {
		sb.WriteString(pad(id))
		for j := range m.Order {
			if i == j {
				sb.WriteString(pad("-"))
				continue
			}
			sb.WriteString(pad(m.Cells[i][j].Code()))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
