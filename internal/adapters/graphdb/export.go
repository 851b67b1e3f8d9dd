package graphdb

import (
	"context"
	"fmt"

	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/pkg/logger"
)

const defaultChunk = 500

// Writer executes a write statement. *Client implements it.
type Writer interface {
	Write(ctx context.Context, cypher string, params map[string]any) error
}

const (
	clearCypher = `
		MATCH (:Wrestler {weight_class: $class})-[r:LOST_TO]->(:Wrestler {weight_class: $class})
		DELETE r`

	nodeCypher = `
		UNWIND $rows AS row
		MERGE (w:Wrestler {id: row.id, weight_class: $class})
		SET w.name = row.name, w.team = row.team, w.rank = row.rank, w.origin = row.origin`

	edgeCypher = `
		UNWIND $rows AS row
		MATCH (l:Wrestler {id: row.loser, weight_class: $class})
		MATCH (w:Wrestler {id: row.winner, weight_class: $class})
		MERGE (l)-[r:LOST_TO {kind: row.kind}]->(w)
		SET r.weight = row.weight, r.support = row.support, r.via = row.via`
)

// Summary reports what an export wrote.
type Summary struct {
	WeightClass string `json:"weight_class"`
	Nodes       int    `json:"nodes"`
	Edges       int    `json:"edges"`
}

// Exporter replaces a class's relationships in the graph database with a
// snapshot of a built graph.
type Exporter struct {
	w     Writer
	chunk int
	log   logger.Logger
}

// NewExporter creates an exporter writing through w.
func NewExporter(w Writer, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.Nop()
	}
	return &Exporter{w: w, chunk: defaultChunk, log: log}
}

// Export writes g. Roster details and ranks decorate the nodes when known.
func (e *Exporter) Export(ctx context.Context, g *graph.Graph, roster []model.Entity, ranks map[string]int) (Summary, error) {
	class := g.WeightClass
	nodes := NodeRows(g, roster, ranks)
	edges := EdgeRows(g)

	if err := e.w.Write(ctx, clearCypher, map[string]any{"class": class}); err != nil {
		return Summary{}, fmt.Errorf("clear %s: %w", class, err)
	}
	if err := e.writeChunks(ctx, nodeCypher, class, nodes); err != nil {
		return Summary{}, fmt.Errorf("nodes %s: %w", class, err)
	}
	if err := e.writeChunks(ctx, edgeCypher, class, edges); err != nil {
		return Summary{}, fmt.Errorf("edges %s: %w", class, err)
	}

	s := Summary{WeightClass: class, Nodes: len(nodes), Edges: len(edges)}
	e.log.Info(ctx, "graph exported",
		logger.String("weight_class", class),
		logger.Int("nodes", s.Nodes),
		logger.Int("edges", s.Edges))
	return s, nil
}

func (e *Exporter) writeChunks(ctx context.Context, cypher, class string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += e.chunk {
		end := min(start+e.chunk, len(rows))
		if err := e.w.Write(ctx, cypher, map[string]any{"class": class, "rows": rows[start:end]}); err != nil {
			return err
		}
	}
	return nil
}

// NodeRows builds the UNWIND parameters for the nodes of g in id order.
func NodeRows(g *graph.Graph, roster []model.Entity, ranks map[string]int) []map[string]any {
	byID := make(map[string]model.Entity, len(roster))
	for _, en := range roster {
		byID[en.ID] = en
	}
	nodes := g.Nodes()
	rows := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		en := byID[n.ID]
		rank := ranks[n.ID]
		if rank == 0 {
			rank = en.Rank
		}
		rows = append(rows, map[string]any{
			"id":     n.ID,
			"name":   en.Name,
			"team":   en.Team,
			"rank":   rank,
			"origin": n.Origin,
		})
	}
	return rows
}

// EdgeRows builds the UNWIND parameters for every edge of g.
func EdgeRows(g *graph.Graph) []map[string]any {
	edges := g.Edges()
	rows := make([]map[string]any, 0, len(edges))
	for _, ed := range edges {
		via := ed.Via
		if via == nil {
			via = []string{}
		}
		rows = append(rows, map[string]any{
			"loser":   ed.Loser,
			"winner":  ed.Winner,
			"kind":    ed.Kind.String(),
			"weight":  ed.Weight,
			"support": ed.Support,
			"via":     via,
		})
	}
	return rows
}
