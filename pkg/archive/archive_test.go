package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-opticbench/pkg/report"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleReport(scenery, mode string, started time.Time, failing bool) *report.AnalysisReport {
	r := &report.AnalysisReport{
		Run:         uuid.New(),
		Scenery:     scenery,
		Mode:        mode,
		Document:    "bench.opm",
		Fingerprint: "fp-" + scenery,
		Started:     started,
		Duration:    0.25,
		Nodes: []report.NodeReport{
			{ID: uuid.New(), Name: "meter", Type: "energy meter", Values: map[string]any{"energy": 0.5}},
		},
	}
	if failing {
		r.Nodes = append(r.Nodes, report.NodeReport{ID: uuid.New(), Name: "camera", Type: "fluence detector", Error: "no hit points"})
	}
	return r
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	first := sampleReport("bench", "energy", epoch, false)
	second := sampleReport("bench", "ghost", epoch.Add(time.Minute), true)
	third := sampleReport("other", "energy", epoch.Add(2*time.Minute), false)
	for _, r := range []*report.AnalysisReport{first, second, third} {
		require.NoError(t, s.Save(ctx, r))
	}

	t.Run("duplicate", func(t *testing.T) {
		assert.ErrorIs(t, s.Save(ctx, first), ErrDuplicate)
	})

	t.Run("get", func(t *testing.T) {
		got, err := s.Get(ctx, second.Run)
		require.NoError(t, err)
		assert.Equal(t, "ghost", got.Mode)
		require.Len(t, got.Nodes, 2)
		meter, ok := got.Node("meter")
		require.True(t, ok)
		assert.InDelta(t, 0.5, meter.Values["energy"], 1e-12)
		assert.Len(t, got.Failed(), 1)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		runs, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, runs, 3)
		assert.Equal(t, third.Run, runs[0].ID)
		assert.Equal(t, second.Run, runs[1].ID)
		assert.Equal(t, first.Run, runs[2].ID)

		assert.Equal(t, 2, runs[1].Nodes)
		assert.Equal(t, 1, runs[1].Failed)
		assert.True(t, runs[1].Started.Equal(epoch.Add(time.Minute)))
		assert.InDelta(t, 0.25, runs[1].Duration, 1e-12)
		assert.Equal(t, "bench.opm", runs[1].Document)
	})

	tests := []struct {
		name   string
		filter Filter
		want   []uuid.UUID
	}{
		{"scenery", Filter{Scenery: "bench"}, []uuid.UUID{second.Run, first.Run}},
		{"mode", Filter{Mode: "energy"}, []uuid.UUID{third.Run, first.Run}},
		{"scenery and mode", Filter{Scenery: "bench", Mode: "energy"}, []uuid.UUID{first.Run}},
		{"fingerprint", Filter{Fingerprint: "fp-other"}, []uuid.UUID{third.Run}},
		{"limit", Filter{Limit: 1}, []uuid.UUID{third.Run}},
		{"no match", Filter{Scenery: "missing"}, nil},
	}
	for _, tt := range tests {
		t.Run("filter "+tt.name, func(t *testing.T) {
			runs, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			var ids []uuid.UUID
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestSQLStore(t *testing.T) {
	s, err := NewSQLStore(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
}

func TestSQLStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := NewSQLStore(ctx, path)
	require.NoError(t, err)
	r := sampleReport("bench", "energy", epoch, false)
	require.NoError(t, s.Save(ctx, r))
	require.NoError(t, s.Close())

	s, err = NewSQLStore(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, r.Run)
	require.NoError(t, err)
	assert.Equal(t, r.Scenery, got.Scenery)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "")
	assert.Error(t, err)

	for _, url := range []string{
		filepath.Join(t.TempDir(), "plain.db"),
		"sqlite://" + filepath.Join(t.TempDir(), "prefixed.db"),
	} {
		s, err := Open(ctx, url)
		require.NoError(t, err, url)
		assert.IsType(t, &SQLStore{}, s)
		require.NoError(t, s.Close())
	}

	_, err = Open(ctx, "postgres://%zz")
	assert.Error(t, err)
}

func TestFilterWhere(t *testing.T) {
	where, args := Filter{}.where(func(int) string { return "?" })
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = Filter{Scenery: "a", Fingerprint: "f"}.where(func(n int) string { return "$" + string(rune('0'+n)) })
	assert.Equal(t, " WHERE scenery = $1 AND fingerprint = $2", where)
	assert.Equal(t, []any{"a", "f"}, args)
}

// TestPGStore runs against a live database named by
// OPTICBENCH_TEST_DATABASE_URL.
func TestPGStore(t *testing.T) {
	url := os.Getenv("OPTICBENCH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("OPTICBENCH_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := NewPGStore(ctx, url)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ping(ctx))
	_, err = s.pool.Exec(ctx, "TRUNCATE runs")
	require.NoError(t, err)

	exerciseStore(t, s)
}
