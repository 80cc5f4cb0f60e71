package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ExecutionModel is the GORM model for execution history rows.
// Shared by the SQLite and PostgreSQL backends; GORM's dialects handle
// the SQL differences transparently.
type ExecutionModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Tool            string    `gorm:"size:64;index"`
	Status          string    `gorm:"size:32;index"`
	DurationSeconds float64
	CodeLength      int
	Workspace       string    `gorm:"size:512"`
	Error           string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"index"`
}

// TableName overrides GORM's default pluralization.
func (ExecutionModel) TableName() string { return "executions" }

// gormStore implements Store on top of a GORM connection.
type gormStore struct {
	db     *gorm.DB
	driver string
	logger *slog.Logger
}

func openSQLite(path string, slogger *slog.Logger) (Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
	}

	// WAL for concurrent reads while an execution is being recorded.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(slogger))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	slogger.Info("sqlite history store opened", slog.String("path", path))
	return &gormStore{db: db, driver: DriverSQLite, logger: slogger}, nil
}

func openPostgres(dsn string, slogger *slog.Logger) (Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig(slogger))
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	slogger.Info("postgres history store opened")
	return &gormStore{db: db, driver: DriverPostgres, logger: slogger}, nil
}

func gormConfig(slogger *slog.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			slogAdapter{slogger},
			logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (s *gormStore) RecordExecution(ctx context.Context, rec *ExecutionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	model := ExecutionModel{
		ID:              rec.ID,
		Tool:            rec.Tool,
		Status:          rec.Status,
		DurationSeconds: rec.DurationSeconds,
		CodeLength:      rec.CodeLength,
		Workspace:       rec.Workspace,
		Error:           rec.Error,
		CreatedAt:       rec.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("recording execution: %w", err)
	}
	return nil
}

func (s *gormStore) ListExecutions(ctx context.Context, limit int) ([]*ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []ExecutionModel
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("listing executions: %w", err)
	}

	records := make([]*ExecutionRecord, 0, len(models))
	for _, m := range models {
		records = append(records, &ExecutionRecord{
			ID:              m.ID,
			Tool:            m.Tool,
			Status:          m.Status,
			DurationSeconds: m.DurationSeconds,
			CodeLength:      m.CodeLength,
			Workspace:       m.Workspace,
			Error:           m.Error,
			CreatedAt:       m.CreatedAt,
		})
	}
	return records, nil
}

func (s *gormStore) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).
		Model(&ExecutionModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting executions: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *gormStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&ExecutionModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("pruning executions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) Migrate(_ context.Context) error {
	return s.db.AutoMigrate(&ExecutionModel{})
}

func (s *gormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *gormStore) Driver() string {
	return s.driver
}

// slogAdapter wraps *slog.Logger for GORM's logger.Writer interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (s slogAdapter) Printf(format string, args ...any) {
	s.logger.Info(fmt.Sprintf(format, args...))
}

// compile-time interface check
var _ Store = (*gormStore)(nil)
