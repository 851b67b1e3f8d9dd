// Package graph builds the per weight class relationship graph: direct edges
// from recorded matches and inferred common-opponent edges.
package graph

import (
	"sort"
)

// EdgeKind distinguishes recorded from inferred relationships.
type EdgeKind int

const (
	Direct EdgeKind = iota
	CommonOpponent
)

func (k EdgeKind) String() string {
	if k == CommonOpponent {
		return "common_opponent"
	}
	return "direct"
}

// Edge points from Loser to Winner.
type Edge struct {
	Loser       string
	Winner      string
	WeightClass string
	Kind        EdgeKind
	// Support is the number of matches (Direct) or agreeing chains
	// (CommonOpponent) behind the edge.
	Support int
	// InferSupport counts the direct matches usable for inference.
	InferSupport int
	// Against counts common-opponent chains pointing the other way.
	Against int
	Weight  float64
	// Via lists the shared opponents of a CommonOpponent edge.
	Via []string
}

// Node is an entity tagged with the weight class it belongs to.
type Node struct {
	ID     string
	Origin string
}

type edgeKey struct {
	loser, winner string
	kind          EdgeKind
}

// Graph is a directed weighted multigraph keyed by (loser, winner, kind).
// A Graph is owned by one computation and is not safe for concurrent writes.
type Graph struct {
	WeightClass string

	nodes map[string]Node
	edges map[edgeKey]*Edge
}

// New returns an empty graph for class.
func New(class string) *Graph {
	return &Graph{
		WeightClass: class,
		nodes:       make(map[string]Node),
		edges:       make(map[edgeKey]*Edge),
	}
}

// AddNode registers id. The first origin recorded wins unless the new one
// is the graph's own class.
func (g *Graph) AddNode(id, origin string) {
	if n, ok := g.nodes[id]; ok {
		if n.Origin != g.WeightClass && origin == g.WeightClass {
			g.nodes[id] = Node{ID: id, Origin: origin}
		}
		return
	}
	g.nodes[id] = Node{ID: id, Origin: origin}
}

// HasNode reports whether id is in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node for id.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns all nodes sorted by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodeIDs returns node ids sorted.
func (g *Graph) NodeIDs() []string {
	nodes := g.Nodes()
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

// addEdge merges e into the graph. Self loops are dropped.
func (g *Graph) addEdge(e Edge) {
	if e.Loser == e.Winner {
		return
	}
	k := edgeKey{loser: e.Loser, winner: e.Winner, kind: e.Kind}
	if cur, ok := g.edges[k]; ok {
		cur.Support += e.Support
		cur.InferSupport += e.InferSupport
		cur.Against += e.Against
		cur.Weight += e.Weight
		cur.Via = append(cur.Via, e.Via...)
		if e.WeightClass == g.WeightClass {
			cur.WeightClass = e.WeightClass
		}
		return
	}
	cp := e
	cp.Via = append([]string(nil), e.Via...)
	g.edges[k] = &cp
}

// Edges returns a copy of every edge ordered by loser, winner, kind.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Loser != out[j].Loser {
			return out[i].Loser < out[j].Loser
		}
		if out[i].Winner != out[j].Winner {
			return out[i].Winner < out[j].Winner
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// EdgeCount returns the number of edges of kind.
func (g *Graph) EdgeCount(kind EdgeKind) int {
	n := 0
	for k := range g.edges {
		if k.kind == kind {
			n++
		}
	}
	return n
}

// Edge looks up a single edge.
func (g *Graph) Edge(loser, winner string, kind EdgeKind) (Edge, bool) {
	e, ok := g.edges[edgeKey{loser: loser, winner: winner, kind: kind}]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// HasDirect reports whether a and b met in either direction.
func (g *Graph) HasDirect(a, b string) bool {
	_, ab := g.edges[edgeKey{loser: a, winner: b, kind: Direct}]
	_, ba := g.edges[edgeKey{loser: b, winner: a, kind: Direct}]
	return ab || ba
}

// Weight sums the weight of every edge from loser to winner.
func (g *Graph) Weight(loser, winner string) float64 {
	var w float64
	for _, kind := range []EdgeKind{Direct, CommonOpponent} {
		if e, ok := g.edges[edgeKey{loser: loser, winner: winner, kind: kind}]; ok {
			w += e.Weight
		}
	}
	return w
}

// Degree returns the number of edges touching id.
func (g *Graph) Degree(id string) int {
	n := 0
	for k := range g.edges {
		if k.loser == id || k.winner == id {
			n++
		}
	}
	return n
}

// Restrict returns the subgraph of nodes whose origin is class together with
// the edges between them.
func (g *Graph) Restrict(class string) *Graph {
	out := New(class)
	for id, n := range g.nodes {
		if n.Origin == class {
			out.nodes[id] = n
		}
	}
	for k, e := range g.edges {
		if out.HasNode(k.loser) && out.HasNode(k.winner) {
			cp := *e
			cp.Via = append([]string(nil), e.Via...)
			out.edges[k] = &cp
		}
	}
	return out
}
