// Package janitor removes expired execution workspaces on a cron schedule.
// Every execution leaves a workspace directory behind so clients can fetch
// artifacts after the tool call returns; the janitor bounds how long and
// how many of them survive.
package janitor

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rootmcp/rootmcp/internal/config"
	"github.com/rootmcp/rootmcp/internal/observability"
)

// workspacePrefix matches the directories the executor creates.
const workspacePrefix = "exec_"

// Janitor sweeps the workspace base directory on a schedule.
type Janitor struct {
	baseDir       string
	maxAge        time.Duration
	maxWorkspaces int
	schedule      string

	cron    *cron.Cron
	logger  *slog.Logger
	metrics *observability.MetricsCollector
}

// New creates a Janitor from config. Returns nil when cleanup is disabled.
func New(cfg *config.CleanupConfig, baseDir string, metrics *observability.MetricsCollector, logger *slog.Logger) *Janitor {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Janitor{
		baseDir:       baseDir,
		maxAge:        cfg.MaxAge(),
		maxWorkspaces: cfg.MaxWorkspaces,
		schedule:      cfg.Schedule,
		logger:        logger,
		metrics:       metrics,
	}
}

// Start schedules the sweep. No-op on a nil Janitor.
func (j *Janitor) Start() error {
	if j == nil {
		return nil
	}
	j.cron = cron.New()
	if _, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Sweep(); err != nil {
			j.logger.Error("workspace sweep failed", slog.String("error", err.Error()))
		}
	}); err != nil {
		return fmt.Errorf("scheduling cleanup %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("workspace janitor started",
		slog.String("schedule", j.schedule),
		slog.Duration("max_age", j.maxAge),
		slog.Int("max_workspaces", j.maxWorkspaces))
	return nil
}

// Stop halts the schedule, waiting for a running sweep to finish.
func (j *Janitor) Stop() {
	if j == nil || j.cron == nil {
		return
	}
	<-j.cron.Stop().Done()
}

// Sweep deletes workspaces past the retention age, then enforces the
// workspace cap oldest-first. Returns the number of workspaces removed.
func (j *Janitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading workspace base %s: %w", j.baseDir, err)
	}

	type workspace struct {
		path    string
		modTime time.Time
	}
	var workspaces []workspace
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), workspacePrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		workspaces = append(workspaces, workspace{
			path:    filepath.Join(j.baseDir, entry.Name()),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(workspaces, func(a, b int) bool {
		return workspaces[a].modTime.Before(workspaces[b].modTime)
	})

	deleted := 0
	cutoff := time.Now().Add(-j.maxAge)
	remaining := workspaces[:0]
	for _, ws := range workspaces {
		if ws.modTime.Before(cutoff) {
			if err := os.RemoveAll(ws.path); err != nil {
				j.logger.Warn("failed to delete workspace",
					slog.String("path", ws.path), slog.String("error", err.Error()))
				remaining = append(remaining, ws)
				continue
			}
			deleted++
			continue
		}
		remaining = append(remaining, ws)
	}

	// Cap enforcement, oldest first.
	if j.maxWorkspaces > 0 {
		for len(remaining) > j.maxWorkspaces {
			ws := remaining[0]
			if err := os.RemoveAll(ws.path); err != nil {
				j.logger.Warn("failed to delete workspace",
					slog.String("path", ws.path), slog.String("error", err.Error()))
				break
			}
			deleted++
			remaining = remaining[1:]
		}
	}

	if deleted > 0 {
		if j.metrics != nil {
			j.metrics.WorkspacesDeleted.Add(float64(deleted))
		}
		j.logger.Info("workspace sweep completed",
			slog.Int("deleted", deleted), slog.Int("remaining", len(remaining)))
	}
	return deleted, nil
}
