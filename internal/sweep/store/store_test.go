package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sweep.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInsertAndCountRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.CountRuns(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty store, got %d rows", n)
	}

	id, err := s.InsertRun(ctx, RunSummary{
		Seed:               42,
		PopulationSize:     1000,
		Ticks:              500,
		TotalMatchesFormed: 37,
		MeanSearchWaitSecs: 21.5,
		BlowoutMild:        4,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero row id")
	}

	if _, err := s.InsertRun(ctx, RunSummary{Seed: 43, Error: "boom"}); err != nil {
		t.Fatalf("insert errored run: %v", err)
	}

	n, err = s.CountRuns(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
}
