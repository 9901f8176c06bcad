package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-opticbench/pkg/report"
)

const pgSchema = `
	CREATE TABLE IF NOT EXISTS runs (
		id UUID PRIMARY KEY,
		scenery TEXT NOT NULL,
		mode TEXT NOT NULL,
		document TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		started TIMESTAMPTZ NOT NULL,
		duration DOUBLE PRECISION NOT NULL,
		nodes INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		report JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_scenery ON runs(scenery);
	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started DESC);
	`

// PGStore archives runs in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to databaseURL and creates the runs table when
// missing.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	config.MaxConns = 8
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Ping checks database connectivity.
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) Save(ctx context.Context, r *report.AnalysisReport) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	run := summarise(r)
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO runs (id, scenery, mode, document, fingerprint, started, duration, nodes, failed, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`,
		run.ID,
		run.Scenery,
		run.Mode,
		run.Document,
		run.Fingerprint,
		run.Started,
		run.Duration,
		run.Nodes,
		run.Failed,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to archive run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", run.ID, ErrDuplicate)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (*report.AnalysisReport, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM runs WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return report.Unmarshal(data)
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]Run, error) {
	where, args := f.where(func(n int) string { return fmt.Sprintf("$%d", n) })
	query := `SELECT id, scenery, mode, document, fingerprint, started, duration, nodes, failed FROM runs` +
		where + ` ORDER BY started DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Scenery, &run.Mode, &run.Document, &run.Fingerprint,
			&run.Started, &run.Duration, &run.Nodes, &run.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Started = run.Started.UTC()
		out = append(out, run)
	}
	return out, rows.Err()
}

// Close closes the connection pool.
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
