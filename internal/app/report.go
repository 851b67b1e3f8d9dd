package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/wrestlerank/internal/adapters/graphdb"
	"github.com/okian/wrestlerank/internal/adapters/repository"
	"github.com/okian/wrestlerank/internal/domain/graph"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/internal/domain/powerscore"
	"github.com/okian/wrestlerank/internal/domain/types"
	"github.com/okian/wrestlerank/internal/domain/weightclass"
)

// Graph materializes the committed graph of class.
func (s *Service) Graph(ctx context.Context, class string) (*graph.Graph, error) {
	return s.builder.Materialize(ctx, weightclass.Normalize(class), s.includeAdjacent)
}

// Matrix reports head-to-head relations of class in order. A nil order
// uses the latest ranking, or the graph nodes when there is none.
func (s *Service) Matrix(ctx context.Context, class string, order []string) (graph.Matrix, error) {
	class = weightclass.Normalize(class)
	g, err := s.Graph(ctx, class)
	if err != nil {
		return graph.Matrix{}, err
	}
	if order == nil {
		latest, err := s.store.LatestRanking(ctx, class)
		switch {
		case err == nil:
			order = latest.Order
		case errors.Is(err, repository.ErrNotFound):
			order = g.NodeIDs()
		default:
			return graph.Matrix{}, fmt.Errorf("load latest ranking for %s: %w", class, err)
		}
	}
	return g.Matrix(order), nil
}

// Ranking returns the latest ranking of class joined with names, power
// scores and records.
func (s *Service) Ranking(ctx context.Context, class string) ([]types.RankingRow, error) {
	class = weightclass.Normalize(class)
	latest, err := s.store.LatestRanking(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load latest ranking for %s: %w", class, err)
	}
	roster, err := s.store.Roster(ctx, class)
	if err != nil {
		return nil, fmt.Errorf("load roster for %s: %w", class, err)
	}
	byID := make(map[string]model.Entity, len(roster))
	for _, e := range roster {
		byID[e.ID] = e
	}
	stored, err := s.store.Matches(ctx, []string{class}, nil)
	if err != nil {
		return nil, fmt.Errorf("load matches for %s: %w", class, err)
	}
	matches := make([]model.MatchRecord, len(stored))
	for i, m := range stored {
		matches[i] = m.Record
	}

	rows := make([]types.RankingRow, len(latest.Order))
	for i, id := range latest.Order {
		rec := powerscore.RecordFor(id, matches)
		e := byID[id]
		rows[i] = types.RankingRow{
			Rank:       i + 1,
			EntityID:   id,
			Name:       e.Name,
			PowerScore: e.PowerScore,
			Wins:       rec.Wins,
			Losses:     rec.Losses,
		}
	}
	return rows, nil
}

// History returns every ranking published for class, oldest first.
func (s *Service) History(ctx context.Context, class string) ([]model.RankingResult, error) {
	return s.store.Rankings(ctx, weightclass.Normalize(class))
}

// Leaderboard returns the n best power scores of class computed so far.
func (s *Service) Leaderboard(ctx context.Context, class string, n int) ([]types.ScoreEntry, error) {
	return s.board(weightclass.Normalize(class)).TopN(ctx, n)
}

// ScoreRank returns the power score standing of id within class.
func (s *Service) ScoreRank(ctx context.Context, class, id string) (types.ScoreEntry, error) {
	return s.board(weightclass.Normalize(class)).Rank(ctx, id)
}

// Stats summarises the store.
func (s *Service) Stats(ctx context.Context) (repository.Stats, error) {
	return s.store.Stats(ctx)
}

// ExportGraph writes the committed graph of class to the graph database.
func (s *Service) ExportGraph(ctx context.Context, class string) (graphdb.Summary, error) {
	if s.exporter == nil {
		return graphdb.Summary{}, ErrNoExporter
	}
	class = weightclass.Normalize(class)
	g, err := s.Graph(ctx, class)
	if err != nil {
		return graphdb.Summary{}, err
	}
	roster, err := s.store.Roster(ctx, class)
	if err != nil {
		return graphdb.Summary{}, fmt.Errorf("load roster for %s: %w", class, err)
	}
	ranks, err := s.ranksFor(ctx, class)
	if err != nil {
		return graphdb.Summary{}, err
	}
	return s.exporter.Export(ctx, g, roster, ranks)
}
