// Package storage persists execution history. Two backends are provided:
// SQLite (default, zero-config) and PostgreSQL.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/rootmcp/rootmcp/internal/config"
)

// Driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ExecutionRecord is one finished tool execution. The submitted code itself
// is not stored, only its length; workspaces already hold artifacts.
type ExecutionRecord struct {
	ID              uuid.UUID `json:"id"`
	Tool            string    `json:"tool"`
	Status          string    `json:"status"`
	DurationSeconds float64   `json:"duration_seconds"`
	CodeLength      int       `json:"code_length"`
	Workspace       string    `json:"workspace,omitempty"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store is the execution history persistence interface.
// Both SQLite and PostgreSQL backends implement this interface.
type Store interface {
	RecordExecution(ctx context.Context, rec *ExecutionRecord) error

	// ListExecutions returns the most recent records, newest first.
	ListExecutions(ctx context.Context, limit int) ([]*ExecutionRecord, error)

	// CountByStatus aggregates record counts per execution status.
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Prune deletes records older than the cutoff, returning the count.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// Open creates a Store from configuration. The SQLite path defaults to
// history.db under the execution working directory.
func Open(cfg *config.StorageConfig, workDir string, logger *slog.Logger) (Store, error) {
	switch cfg.StorageDriver() {
	case DriverSQLite:
		path := ""
		if cfg != nil && cfg.SQLite != nil {
			path = cfg.SQLite.Path
		}
		if path == "" {
			path = filepath.Join(workDir, "history.db")
		}
		return openSQLite(path, logger)
	case DriverPostgres:
		if cfg == nil || cfg.Postgres == nil || cfg.Postgres.DSN == "" {
			return nil, fmt.Errorf("postgres storage requires a dsn")
		}
		return openPostgres(cfg.Postgres.DSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver())
	}
}
