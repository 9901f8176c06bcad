package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dd0wney/cluso-opticbench/pkg/report"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	scenery TEXT NOT NULL,
	mode TEXT NOT NULL,
	document TEXT NOT NULL DEFAULT '',
	fingerprint TEXT NOT NULL DEFAULT '',
	started TEXT NOT NULL,
	duration REAL NOT NULL,
	nodes INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	report BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_scenery ON runs(scenery);
CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
`

// timeLayout sorts lexically in time order for UTC times.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore archives runs in a SQLite file.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens or creates the archive at path.
func NewSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Save(ctx context.Context, r *report.AnalysisReport) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	run := summarise(r)
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenery, mode, document, fingerprint, started, duration, nodes, failed, report)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		run.ID.String(),
		run.Scenery,
		run.Mode,
		run.Document,
		run.Fingerprint,
		run.Started.Format(timeLayout),
		run.Duration,
		run.Nodes,
		run.Failed,
		data,
	)
	if err != nil {
		return fmt.Errorf("archiving run %s: %w", run.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", run.ID, ErrDuplicate)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*report.AnalysisReport, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT report FROM runs WHERE id = ?", id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", id, err)
	}
	return report.Unmarshal(data)
}

func (s *SQLStore) List(ctx context.Context, f Filter) ([]Run, error) {
	where, args := f.where(func(int) string { return "?" })
	query := `SELECT id, scenery, mode, document, fingerprint, started, duration, nodes, failed FROM runs` +
		where + ` ORDER BY started DESC, id`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var run Run
		var id, started string
		if err := rows.Scan(&id, &run.Scenery, &run.Mode, &run.Document, &run.Fingerprint,
			&started, &run.Duration, &run.Nodes, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if run.Started, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s start time: %w", id, err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
