// Package repository holds the match, relationship and ranking stores.
package repository

import (
	"context"

	"github.com/okian/wrestlerank/internal/domain/model"
)

// MatchStore owns match records, their processing status, rosters and the
// committed direct tallies.
type MatchStore interface {
	// UpsertMatches inserts records that are not stored yet and returns how
	// many were new. Re-inserting an identical record is a no-op.
	UpsertMatches(ctx context.Context, matches []model.MatchRecord) (int, error)
	UpsertEntities(ctx context.Context, entities []model.Entity) error

	WeightClasses(ctx context.Context) ([]string, error)
	// Matches filters by class and, when status is non-nil, by status.
	Matches(ctx context.Context, classes []string, status *model.MatchStatus) ([]model.StoredMatch, error)
	Roster(ctx context.Context, class string) ([]model.Entity, error)
	Tallies(ctx context.Context, classes []string) ([]model.Tally, error)

	// CommitBatch marks every match of the batch Processed and applies the
	// tally deltas atomically. It fails without changes if any match is
	// unknown or already processed.
	CommitBatch(ctx context.Context, batch model.Batch) error
	// ReplaceTallies overwrites every tally of class atomically.
	ReplaceTallies(ctx context.Context, class string, tallies []model.Tally) error
	// Reset drops the tallies of classes and flips their matches back to
	// Unprocessed.
	Reset(ctx context.Context, classes []string) error
}

// RankingStore keeps immutable ranking results. Later results supersede
// earlier ones; nothing is updated in place.
type RankingStore interface {
	SaveRanking(ctx context.Context, r model.RankingResult) error
	// LatestRanking returns ErrNotFound when class has no ranking yet.
	LatestRanking(ctx context.Context, class string) (model.RankingResult, error)
	Rankings(ctx context.Context, class string) ([]model.RankingResult, error)
}

// Stats summarises store contents.
type Stats struct {
	Matches   int `json:"matches"`
	Processed int `json:"processed"`
	Entities  int `json:"entities"`
	Tallies   int `json:"tallies"`
	Rankings  int `json:"rankings"`
}

// Store is the full persistence surface of the pipeline.
type Store interface {
	MatchStore
	RankingStore
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
