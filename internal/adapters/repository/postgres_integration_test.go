//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/okian/wrestlerank/internal/adapters/repository"
	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/pkg/logger"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "wrestlerank",
				"POSTGRES_USER":     "rank",
				"POSTGRES_PASSWORD": "rank",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://rank:rank@%s:%s/wrestlerank?sslmode=disable", host, port.Port())
}

func TestPostgresStore(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	s, err := repository.NewPostgresStore(ctx, url, logger.Nop(), repository.WithRunMigrations(true), repository.WithMaxConns(4))
	require.NoError(t, err)
	defer s.Close()

	// A second migration run is a no-op.
	require.NoError(t, repository.Migrate(ctx, url, logger.Nop()))

	require.NoError(t, s.UpsertEntities(ctx, []model.Entity{
		{ID: "a", Name: "Alpha", WeightClass: "157", Rank: 1},
		{ID: "b", Name: "Bravo", WeightClass: "157"},
		{ID: "c", Name: "Charlie", WeightClass: "157", Rank: 2},
	}))

	margin := 3.0
	n, err := s.UpsertMatches(ctx, []model.MatchRecord{
		match("m1", "157", "a", "b", 1),
		match("m2", "157", "c", "b", 2),
		{ID: "m3", WeightClass: "157", Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			EntityA: "a", EntityB: "c", Winner: "a", Result: model.ResultDecision, Margin: &margin},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	roster, err := s.Roster(ctx, "157")
	require.NoError(t, err)
	require.Len(t, roster, 3)
	assert.Equal(t, "a", roster[0].ID)
	assert.Equal(t, "b", roster[2].ID)

	unprocessed := model.StatusUnprocessed
	pending, err := s.Matches(ctx, []string{"157"}, &unprocessed)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.NotNil(t, pending[2].Record.Margin)
	assert.InDelta(t, 3.0, *pending[2].Record.Margin, 1e-9)

	batch := model.Batch{
		WeightClass: "157",
		MatchIDs:    []string{"m1", "m2"},
		Deltas: []model.Tally{
			{WeightClass: "157", Loser: "b", Winner: "a", Count: 1, InferCount: 1, Weight: 1},
			{WeightClass: "157", Loser: "b", Winner: "c", Count: 1, InferCount: 1, Weight: 1},
		},
	}
	require.NoError(t, s.CommitBatch(ctx, batch))
	assert.ErrorIs(t, s.CommitBatch(ctx, batch), repository.ErrAlreadyProcessed)

	tallies, err := s.Tallies(ctx, []string{"157"})
	require.NoError(t, err)
	require.Len(t, tallies, 2)
	assert.Equal(t, 1, tallies[0].Count)

	require.NoError(t, s.ReplaceTallies(ctx, "157", []model.Tally{{Loser: "b", Winner: "a", Count: 2, Weight: 2}}))
	tallies, err = s.Tallies(ctx, []string{"157"})
	require.NoError(t, err)
	require.Len(t, tallies, 1)
	assert.Equal(t, 2, tallies[0].Count)

	require.NoError(t, s.Reset(ctx, []string{"157"}))
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Matches)
	assert.Equal(t, 0, st.Processed)
	assert.Equal(t, 0, st.Tallies)

	_, err = s.LatestRanking(ctx, "157")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.SaveRanking(ctx, model.RankingResult{
		WeightClass: "157", Order: []string{"a", "c", "b"}, Generated: now.Add(-time.Hour), Algorithm: model.AlgorithmManual,
	}))
	require.NoError(t, s.SaveRanking(ctx, model.RankingResult{
		WeightClass: "157", Order: []string{"a", "b", "c"}, Generated: now, Algorithm: model.AlgorithmOptimal, Cost: 1.5, Seed: 7,
	}))
	latest, err := s.LatestRanking(ctx, "157")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, latest.Order)
	assert.Equal(t, model.AlgorithmOptimal, latest.Algorithm)
	assert.Equal(t, int64(7), latest.Seed)

	hist, err := s.Rankings(ctx, "157")
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}
