package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations

	"github.com/okian/wrestlerank/internal/domain/model"
	"github.com/okian/wrestlerank/migrations"
	"github.com/okian/wrestlerank/pkg/logger"
)

const defaultMaxConns = 10

// PostgresStore is the durable Store. Batches run inside one transaction.
type PostgresStore struct {
	pool     *pgxpool.Pool
	maxConns int32
	migrate  bool
	log      logger.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to url, optionally migrating the schema first.
func NewPostgresStore(ctx context.Context, url string, log logger.Logger, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{maxConns: defaultMaxConns, log: log}
	if s.log == nil {
		s.log = logger.Nop()
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.migrate {
		if err := Migrate(ctx, url, s.log); err != nil {
			return nil, err
		}
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	cfg.MaxConns = s.maxConns
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Migrate applies the embedded migrations. It is safe to call repeatedly.
func Migrate(ctx context.Context, url string, log logger.Logger) error {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info(ctx, "no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	version, _, _ := m.Version()
	log.Info(ctx, "applied migrations", logger.Int64("version", int64(version)))
	return nil
}

func (s *PostgresStore) UpsertMatches(ctx context.Context, matches []model.MatchRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	n := 0
	for _, m := range matches {
		var pin *int32
		if m.PinTime != nil {
			v := int32(m.PinTime.Seconds())
			pin = &v
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO matches (id, weight_class, match_date, entity_a, entity_b, winner, result, margin, pin_seconds, raw)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			m.ID, m.WeightClass, m.Date, m.EntityA, m.EntityB, m.Winner, m.Result.String(), m.Margin, pin, m.Raw)
		if err != nil {
			return 0, fmt.Errorf("insert match %s: %w", m.ID, err)
		}
		n += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) UpsertEntities(ctx context.Context, entities []model.Entity) error {
	batch := &pgx.Batch{}
	for _, e := range entities {
		batch.Queue(`
			INSERT INTO entities (weight_class, id, name, team, rank, power_score)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (weight_class, id) DO UPDATE
			SET name = EXCLUDED.name, team = EXCLUDED.team, rank = EXCLUDED.rank, power_score = EXCLUDED.power_score`,
			e.WeightClass, e.ID, e.Name, e.Team, e.Rank, e.PowerScore)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert entities: %w", err)
	}
	return nil
}

func (s *PostgresStore) WeightClasses(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT weight_class FROM matches
		UNION
		SELECT weight_class FROM entities
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("list weight classes: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PostgresStore) Matches(ctx context.Context, classes []string, status *model.MatchStatus) ([]model.StoredMatch, error) {
	var st *int16
	if status != nil {
		v := int16(*status)
		st = &v
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, weight_class, match_date, entity_a, entity_b, winner, result, margin, pin_seconds, raw, status
		FROM matches
		WHERE (coalesce(cardinality($1::text[]), 0) = 0 OR weight_class = ANY($1))
		  AND ($2::smallint IS NULL OR status = $2)
		ORDER BY match_date, id`, classes, st)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []model.StoredMatch
	for rows.Next() {
		var (
			m      model.MatchRecord
			result string
			pin    *int32
			status int16
		)
		if err := rows.Scan(&m.ID, &m.WeightClass, &m.Date, &m.EntityA, &m.EntityB, &m.Winner,
			&result, &m.Margin, &pin, &m.Raw, &status); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		// Unknown names stay ResultUnknown so validation flags the record.
		m.Result, _ = model.ParseResultType(result)
		if pin != nil {
			d := time.Duration(*pin) * time.Second
			m.PinTime = &d
		}
		out = append(out, model.StoredMatch{Record: m, Status: model.MatchStatus(status)})
	}
	return out, rows.Err()
}

func (s *PostgresStore) Roster(ctx context.Context, class string) ([]model.Entity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, team, weight_class, rank, power_score
		FROM entities WHERE weight_class = $1
		ORDER BY CASE WHEN rank > 0 THEN 0 ELSE 1 END, rank, id`, class)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Entity, error) {
		var e model.Entity
		err := row.Scan(&e.ID, &e.Name, &e.Team, &e.WeightClass, &e.Rank, &e.PowerScore)
		return e, err
	})
}

func (s *PostgresStore) Tallies(ctx context.Context, classes []string) ([]model.Tally, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT weight_class, loser, winner, match_count, infer_count, weight
		FROM relationship_tallies
		WHERE (coalesce(cardinality($1::text[]), 0) = 0 OR weight_class = ANY($1)) AND match_count > 0
		ORDER BY weight_class, loser, winner`, classes)
	if err != nil {
		return nil, fmt.Errorf("query tallies: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Tally, error) {
		var t model.Tally
		err := row.Scan(&t.WeightClass, &t.Loser, &t.Winner, &t.Count, &t.InferCount, &t.Weight)
		return t, err
	})
}

func (s *PostgresStore) CommitBatch(ctx context.Context, batch model.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE matches SET status = $2
		WHERE id = ANY($1) AND status = $3`,
		batch.MatchIDs, int16(model.StatusProcessed), int16(model.StatusUnprocessed))
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	if int(tag.RowsAffected()) != len(batch.MatchIDs) {
		return fmt.Errorf("%w: batch of %d matched %d unprocessed rows",
			ErrAlreadyProcessed, len(batch.MatchIDs), tag.RowsAffected())
	}

	for _, d := range batch.Deltas {
		if _, err := tx.Exec(ctx, `
			INSERT INTO relationship_tallies (weight_class, loser, winner, match_count, infer_count, weight, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (weight_class, loser, winner) DO UPDATE
			SET match_count = relationship_tallies.match_count + EXCLUDED.match_count,
			    infer_count = relationship_tallies.infer_count + EXCLUDED.infer_count,
			    weight      = relationship_tallies.weight + EXCLUDED.weight,
			    updated_at  = now()`,
			d.WeightClass, d.Loser, d.Winner, d.Count, d.InferCount, d.Weight); err != nil {
			return fmt.Errorf("apply tally %s>%s: %w", d.Winner, d.Loser, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReplaceTallies(ctx context.Context, class string, tallies []model.Tally) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM relationship_tallies WHERE weight_class = $1`, class); err != nil {
		return fmt.Errorf("clear tallies: %w", err)
	}
	for _, t := range tallies {
		if _, err := tx.Exec(ctx, `
			INSERT INTO relationship_tallies (weight_class, loser, winner, match_count, infer_count, weight)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			class, t.Loser, t.Winner, t.Count, t.InferCount, t.Weight); err != nil {
			return fmt.Errorf("insert tally: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Reset(ctx context.Context, classes []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM relationship_tallies WHERE weight_class = ANY($1)`, classes); err != nil {
		return fmt.Errorf("clear tallies: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE matches SET status = $2 WHERE weight_class = ANY($1)`,
		classes, int16(model.StatusUnprocessed)); err != nil {
		return fmt.Errorf("reset processed flags: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SaveRanking(ctx context.Context, r model.RankingResult) error {
	if r.RunID == uuid.Nil {
		r.RunID = uuid.New()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rankings (run_id, weight_class, generated_at, algorithm, tag, cost, seed, entity_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.RunID, r.WeightClass, r.Generated, string(r.Algorithm), r.Tag(), r.Cost, r.Seed, r.Order)
	if err != nil {
		return fmt.Errorf("insert ranking: %w", err)
	}
	return nil
}

const rankingColumns = `run_id, weight_class, generated_at, algorithm, cost, seed, entity_ids`

func scanRanking(row pgx.CollectableRow) (model.RankingResult, error) {
	var (
		r    model.RankingResult
		algo string
	)
	err := row.Scan(&r.RunID, &r.WeightClass, &r.Generated, &algo, &r.Cost, &r.Seed, &r.Order)
	r.Algorithm = model.Algorithm(algo)
	return r, err
}

func (s *PostgresStore) LatestRanking(ctx context.Context, class string) (model.RankingResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+rankingColumns+` FROM rankings
		WHERE weight_class = $1 ORDER BY generated_at DESC LIMIT 1`, class)
	if err != nil {
		return model.RankingResult{}, fmt.Errorf("query ranking: %w", err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, scanRanking)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RankingResult{}, fmt.Errorf("%w: ranking for %s", ErrNotFound, class)
	}
	return r, err
}

func (s *PostgresStore) Rankings(ctx context.Context, class string) ([]model.RankingResult, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+rankingColumns+` FROM rankings
		WHERE weight_class = $1 ORDER BY generated_at`, class)
	if err != nil {
		return nil, fmt.Errorf("query rankings: %w", err)
	}
	return pgx.CollectRows(rows, scanRanking)
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM matches),
			(SELECT count(*) FROM matches WHERE status = 1),
			(SELECT count(*) FROM entities),
			(SELECT count(*) FROM relationship_tallies),
			(SELECT count(*) FROM rankings)`).
		Scan(&st.Matches, &st.Processed, &st.Entities, &st.Tallies, &st.Rankings)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
