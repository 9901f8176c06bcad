// Package archive keeps the reports of past analysis runs, in an embedded
// SQLite file or in PostgreSQL.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-opticbench/pkg/report"
)

var (
	// ErrNotFound is returned when no run has the requested id.
	ErrNotFound = errors.New("run not found")
	// ErrDuplicate is returned when a run id is archived twice.
	ErrDuplicate = errors.New("run already archived")
)

// Run summarises an archived report.
type Run struct {
	ID          uuid.UUID `json:"id" yaml:"id"`
	Scenery     string    `json:"scenery" yaml:"scenery"`
	Mode        string    `json:"mode" yaml:"mode"`
	Document    string    `json:"document,omitempty" yaml:"document,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Started     time.Time `json:"started" yaml:"started"`
	Duration    float64   `json:"duration_s" yaml:"duration_s"`
	Nodes       int       `json:"nodes" yaml:"nodes"`
	Failed      int       `json:"failed" yaml:"failed"`
}

func summarise(r *report.AnalysisReport) Run {
	return Run{
		ID:          r.Run,
		Scenery:     r.Scenery,
		Mode:        r.Mode,
		Document:    r.Document,
		Fingerprint: r.Fingerprint,
		Started:     r.Started.UTC(),
		Duration:    r.Duration,
		Nodes:       len(r.Nodes),
		Failed:      len(r.Failed()),
	}
}

// Filter narrows List. Zero fields match everything; a zero Limit returns
// all runs.
type Filter struct {
	Scenery     string
	Mode        string
	Fingerprint string
	Limit       int
}

// where builds the condition of a filtered query. placeholder returns the
// bind parameter for argument n (1 based).
func (f Filter) where(placeholder func(n int) string) (string, []any) {
	var conds []string
	var args []any
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = %s", column, placeholder(len(args))))
	}
	add("scenery", f.Scenery)
	add("mode", f.Mode)
	add("fingerprint", f.Fingerprint)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Store persists analysis reports.
type Store interface {
	// Save archives a report under its run id.
	Save(ctx context.Context, r *report.AnalysisReport) error
	// Get returns the full report of a run.
	Get(ctx context.Context, id uuid.UUID) (*report.AnalysisReport, error)
	// List returns run summaries, newest first.
	List(ctx context.Context, f Filter) ([]Run, error)
	Close() error
}

// Open connects to the archive at url. postgres:// and postgresql:// URLs
// select PostgreSQL; anything else is a SQLite path, optionally prefixed
// with sqlite://.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPGStore(ctx, url)
	case url == "":
		return nil, errors.New("empty archive location")
	}
	return NewSQLStore(ctx, strings.TrimPrefix(url, "sqlite://"))
}
