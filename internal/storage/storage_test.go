package storage

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rootmcp/rootmcp/internal/config"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(&config.StorageConfig{
		Driver: DriverSQLite,
		SQLite: &config.SQLiteStorageConfig{Path: filepath.Join(t.TempDir(), "history.db")},
	}, "", logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestRecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, status := range []string{"success", "error", "success"} {
		rec := &ExecutionRecord{
			Tool:            "run_root_code",
			Status:          status,
			DurationSeconds: float64(i) + 0.5,
			CodeLength:      100 * (i + 1),
			CreatedAt:       time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := s.RecordExecution(ctx, rec); err != nil {
			t.Fatalf("RecordExecution: %v", err)
		}
		if rec.ID == uuid.Nil {
			t.Error("record ID not assigned")
		}
	}

	records, err := s.ListExecutions(ctx, 10)
	if err != nil {
		t.Fatalf("ListExecutions: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("record count = %d, want 3", len(records))
	}
	// Newest first.
	if records[0].CodeLength != 300 {
		t.Errorf("first record code length = %d, want newest (300)", records[0].CodeLength)
	}
}

func TestListLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for range 5 {
		if err := s.RecordExecution(ctx, &ExecutionRecord{Tool: "run_root_macro", Status: "success"}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := s.ListExecutions(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("record count = %d, want limit of 2", len(records))
	}
}

func TestCountByStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, status := range []string{"success", "success", "timeout", "validation_failed"} {
		if err := s.RecordExecution(ctx, &ExecutionRecord{Tool: "run_root_code", Status: status}); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts["success"] != 2 || counts["timeout"] != 1 || counts["validation_failed"] != 1 {
		t.Errorf("counts = %v, want success:2 timeout:1 validation_failed:1", counts)
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := &ExecutionRecord{Tool: "run_root_code", Status: "success", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	recent := &ExecutionRecord{Tool: "run_root_code", Status: "success", CreatedAt: time.Now().UTC()}
	for _, rec := range []*ExecutionRecord{old, recent} {
		if err := s.RecordExecution(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	pruned, err := s.Prune(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1", pruned)
	}

	records, err := s.ListExecutions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != recent.ID {
		t.Errorf("remaining records = %v, want only the recent one", records)
	}
}

func TestOpenDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	workDir := t.TempDir()

	// nil sqlite sub-config derives the path from the working directory.
	s, err := Open(&config.StorageConfig{}, workDir, logger)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Driver() != DriverSQLite {
		t.Errorf("driver = %q, want sqlite", s.Driver())
	}
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := Open(&config.StorageConfig{Driver: DriverPostgres}, "", logger); err == nil {
		t.Error("expected error for postgres without dsn")
	}
}
